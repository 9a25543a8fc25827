package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"hpp-sizer/internal/api/models"
	"hpp-sizer/internal/config"

	"github.com/gin-gonic/gin"
)

var errStoragePreset = errors.New("unknown storage preset")

// StorageHandler serves the storage presets in a directory of YAML files
type StorageHandler struct {
	storageDir string
}

// NewStorageHandler creates a storage handler reading presets from dir
func NewStorageHandler(dir string) *StorageHandler {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	log.Printf("StorageHandler: Using storage directory: %s", dir)
	return &StorageHandler{storageDir: dir}
}

// ListStorage handles GET /api/v1/storage
func (h *StorageHandler) ListStorage(c *gin.Context) {
	presets := []models.StorageInfo{}

	entries, err := os.ReadDir(h.storageDir)
	if err != nil {
		log.Printf("StorageHandler: Failed to read storage directory %s: %v", h.storageDir, err)
		c.JSON(http.StatusOK, gin.H{"storage": presets})
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".yaml")
		sc, err := h.Preset(id)
		if err != nil {
			log.Printf("StorageHandler: Skipping %s: %v", entry.Name(), err)
			continue
		}
		presets = append(presets, models.NewStorageInfo(id, sc))
	}

	log.Printf("StorageHandler: Returning %d storage presets", len(presets))
	c.JSON(http.StatusOK, gin.H{"storage": presets})
}

// Preset loads the preset with the given ID (its file name without .yaml).
func (h *StorageHandler) Preset(id string) (config.StorageConfig, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return config.StorageConfig{}, fmt.Errorf("%w: %q", errStoragePreset, id)
	}
	sc, err := config.LoadStorageFile(filepath.Join(h.storageDir, id+".yaml"))
	if errors.Is(err, os.ErrNotExist) {
		return config.StorageConfig{}, fmt.Errorf("%w: %q", errStoragePreset, id)
	}
	return sc, err
}
