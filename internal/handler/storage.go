package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pamdev00/price/internal/backup"
	"github.com/pamdev00/price/internal/store"
)

type StorageHandler struct {
	core    *Core
	usage   store.Usage
	backups *backup.Manager
	logger  *slog.Logger
}

// NewStorageHandler reports usage when gw implements store.Usage.
func NewStorageHandler(core *Core, gw store.Gateway, backups *backup.Manager, logger *slog.Logger) *StorageHandler {
	usage, _ := gw.(store.Usage)
	return &StorageHandler{core: core, usage: usage, backups: backups, logger: logger}
}

type usageResponse struct {
	UsedBytes  int64   `json:"used_bytes"`
	QuotaBytes int64   `json:"quota_bytes"`
	Percent    float64 `json:"percent,omitempty"`
}

func (h *StorageHandler) Usage(w http.ResponseWriter, r *http.Request) {
	if h.usage == nil {
		writeError(w, http.StatusNotImplemented, "storage backend does not report usage")
		return
	}
	used, quota, err := h.usage.Usage()
	if err != nil {
		h.logger.Error("storage usage", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read storage usage")
		return
	}
	resp := usageResponse{UsedBytes: used, QuotaBytes: quota}
	if quota > 0 {
		resp.Percent = float64(used) * 100 / float64(quota)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *StorageHandler) ListBackups(w http.ResponseWriter, r *http.Request) {
	list, err := h.backups.List()
	if err != nil {
		h.logger.Error("list backups", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list backups")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// CreateBackup exports an encrypted copy of everything stored. Writes are
// held off while the three keys are read.
func (h *StorageHandler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Passphrase string `json:"passphrase"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var (
		info backup.Info
		err  error
	)
	h.core.Do(func() {
		info, err = h.backups.Export(req.Passphrase)
	})
	if errors.Is(err, backup.ErrEmptyPassphrase) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "passphrase is required", Field: "passphrase"})
		return
	}
	if err != nil {
		h.logger.Error("export backup", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create backup")
		return
	}
	writeJSON(w, http.StatusCreated, info)
}
