package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/vatsimnerd/routemap"
)

const (
	defaultUploadLimit = 64 << 20
)

type FileInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	// Records is the element count of a JSON document or the line count of
	// any other file, nil when the file can't be read.
	Records *int `json:"records"`
}

// dataFile resolves name inside the data dir, rejecting anything that could
// escape it.
func (s *Server) dataFile(name string) (string, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid file name '%s'", name)
	}
	return filepath.Join(s.cfg.DataDir, name), nil
}

func countRecords(path string) *int {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var n int
	if strings.HasSuffix(path, ".json") {
		var doc interface{}
		if err := json.Unmarshal(data, &doc); err == nil {
			switch v := doc.(type) {
			case []interface{}:
				n = len(v)
			case map[string]interface{}:
				n = len(v)
			default:
				n = 1
			}
			return &n
		}
	}

	n = bytes.Count(data, []byte("\n"))
	if len(data) > 0 && data[len(data)-1] != '\n' {
		n++
	}
	return &n
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.cfg.DataDir)
	if err != nil {
		log.WithError(err).Error("error reading data dir")
		respondError(w, http.StatusInternalServerError, "failed to list files")
		return
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:     e.Name(),
			Size:     info.Size(),
			Modified: info.ModTime().UTC(),
			Records:  countRecords(filepath.Join(s.cfg.DataDir, e.Name())),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	respondJSON(w, http.StatusOK, map[string]interface{}{"files": files})
}

func (s *Server) downloadFile(w http.ResponseWriter, r *http.Request) {
	path, err := s.dataFile(mux.Vars(r)["name"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := os.Stat(path); err != nil {
		respondError(w, http.StatusNotFound, "file not found")
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

// uploadFile accepts either a multipart form with a "file" field or the raw
// request body.
func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	path, err := s.dataFile(mux.Vars(r)["name"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := s.cfg.UploadLimit
	if limit <= 0 {
		limit = defaultUploadLimit
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			respondError(w, http.StatusBadRequest, "file field is missing")
			return
		}
		defer file.Close()
		src = file
	}

	data, err := io.ReadAll(src)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.WithError(err).WithField("path", path).Error("error saving upload")
		respondError(w, http.StatusInternalServerError, "failed to save file")
		return
	}

	log.WithField("path", path).WithField("size", len(data)).Info("file uploaded")
	respondJSON(w, http.StatusOK, map[string]interface{}{"name": filepath.Base(path), "size": len(data)})
}

func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request) {
	path, err := s.dataFile(mux.Vars(r)["name"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			respondError(w, http.StatusNotFound, "file not found")
			return
		}
		log.WithError(err).WithField("path", path).Error("error deleting file")
		respondError(w, http.StatusInternalServerError, "failed to delete file")
		return
	}
	log.WithField("path", path).Info("file deleted")
	respondJSON(w, http.StatusOK, map[string]string{"deleted": filepath.Base(path)})
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"config":     s.deps.Settings.Get(),
		"continents": routemap.Continents,
	})
}

func (s *Server) setConfig(w http.ResponseWriter, r *http.Request) {
	settings := s.deps.Settings.Get()
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		respondError(w, http.StatusBadRequest, "invalid config payload")
		return
	}
	if err := settings.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.deps.Settings.Set(settings); err != nil {
		log.WithError(err).Error("error saving settings")
		respondError(w, http.StatusInternalServerError, "failed to save config")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"config": s.deps.Settings.Get()})
}
