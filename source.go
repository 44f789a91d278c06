package routemap

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vatsimnerd/perfetch"
)

var (
	log = logrus.WithField("module", "source")
)

// IsRemote tells whether url is fetched over http rather than read from disk.
func IsRemote(url string) bool {
	return strings.HasPrefix(url, "http")
}

// Open starts delivering raw payloads from url. Remote urls are polled with
// perfetch, local paths are re-read every poll period. The first payload is
// fetched before Open returns, with up to boot.Retries attempts spaced by
// boot.RetryCooldown. The returned stop func must be called exactly once.
func Open(url string, poll PollConfig, boot BootConfig) (<-chan []byte, func(), error) {
	if IsRemote(url) {
		return OpenFetcher(url, perfetch.HTTPGetFetcher(url, poll.Timeout), poll, boot)
	}
	return openFile(url, poll, boot)
}

// OpenFetcher is Open for an arbitrary fetcher; name only shows up in logs
// and errors.
func OpenFetcher(name string, fetch perfetch.Fetcher[[]byte], poll PollConfig, boot BootConfig) (<-chan []byte, func(), error) {
	retries := boot.Retries
	if retries < 1 {
		retries = 1
	}

	var data []byte
	var err error
	for r := 1; r <= retries; r++ {
		data, err = fetch()
		if err == nil {
			break
		}
		log.WithError(err).WithFields(logrus.Fields{
			"source":       name,
			"retries_left": retries - r,
		}).Error("error fetching data (initial)")
		if r < retries {
			time.Sleep(boot.RetryCooldown)
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("error fetching %s: %w", name, err)
	}

	if poll.Period <= 0 {
		ch := make(chan []byte, 1)
		ch <- data
		return ch, func() {}, nil
	}

	// the poller hands out the boot payload first instead of fetching again
	first := true
	poller := perfetch.New(poll.Period, func() ([]byte, error) {
		if first {
			first = false
			return data, nil
		}
		return fetch()
	})
	psub := poller.Subscribe(16)
	if err := poller.Start(); err != nil {
		poller.Unsubscribe(psub)
		return nil, nil, fmt.Errorf("error starting poller for %s: %w", name, err)
	}

	stop := func() {
		// perfetch closes its subscriptions on stop, so unsubscribe first;
		// draining unblocks a notify that is in flight
		go func() {
			for range psub.Updates() {
			}
		}()
		poller.Unsubscribe(psub)
		poller.Stop()
	}
	return psub.Updates(), stop, nil
}

func openFile(filename string, poll PollConfig, boot BootConfig) (<-chan []byte, func(), error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading file %s: %w", filename, err)
	}

	ch := make(chan []byte, 1)
	ch <- data
	done := make(chan struct{})

	if poll.Period > 0 {
		go func() {
			t := time.NewTicker(poll.Period)
			defer t.Stop()
			for {
				select {
				case <-t.C:
					data, err := os.ReadFile(filename)
					if err != nil {
						log.WithError(err).WithField("filename", filename).Error("error reloading file")
						continue
					}
					select {
					case ch <- data:
					case <-done:
						return
					}
				case <-done:
					return
				}
			}
		}()
	}

	return ch, func() { close(done) }, nil
}

// FetchOnce returns a single payload from url.
func FetchOnce(url string, timeout time.Duration) ([]byte, error) {
	if !IsRemote(url) {
		return os.ReadFile(url)
	}
	data, err := perfetch.HTTPGetFetcher(url, timeout)()
	if err != nil {
		return nil, fmt.Errorf("error fetching %s: %w", url, err)
	}
	return data, nil
}
