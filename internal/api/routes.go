package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clipmarker/clipmarker-agent/internal/backend"
	"github.com/clipmarker/clipmarker-agent/internal/dispatch"
	"github.com/clipmarker/clipmarker-agent/internal/session"
	"github.com/clipmarker/clipmarker-agent/internal/settings"
)

const maxBodyBytes = 64 * 1024

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(LoopbackGuard())
	r.Use(CORS())

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Post("/commands/{tag}", submitCommandHandler(cfg))
		r.Get("/commands", listCommandsHandler(cfg))
		r.Delete("/clips/{ordinal}", deleteClipHandler(cfg))
		r.Put("/clips/{ordinal}", renameClipHandler(cfg))
		r.Get("/settings", getSettingsHandler(cfg))
		r.Put("/settings", updateSettingsHandler(cfg))
		r.Get("/autosaves", listAutoSavesHandler(cfg))
		r.Post("/autosaves/{filename}/open", openAutoSaveHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: uptime,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := cfg.Controller.Snapshot()

		resp := StatusResponse{
			SessionID:  snap.SessionID,
			State:      snap.State,
			Draft:      snap.Draft,
			CanCommit:  snap.Draft.Complete(),
			Clips:      make([]ClipResponse, len(snap.Clips)),
			Settings:   cfg.Settings.Values(),
			QueueDepth: cfg.Dispatcher.Depth(),
		}
		for i, c := range snap.Clips {
			resp.Clips[i] = ClipToResponse(c)
		}
		if cfg.Notifications != nil {
			resp.Notification = NotificationToResponse(cfg.Notifications.Current())
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func submitCommandHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tag, err := dispatch.ParseTag(chi.URLParam(r, "tag"))
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "UNKNOWN_COMMAND")
			return
		}

		seq, _, err := cfg.Dispatcher.Submit(tag, dispatch.OriginAPI)
		if err != nil {
			writeDispatchError(w, err)
			return
		}

		WriteJSON(w, http.StatusAccepted, CommandAcceptedResponse{Seq: seq, Tag: string(tag)})
	}
}

func listCommandsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if l := r.URL.Query().Get("limit"); l != "" {
			n, err := strconv.Atoi(l)
			if err != nil || n < 1 || n > 500 {
				WriteError(w, http.StatusBadRequest, "limit must be between 1 and 500", "BAD_REQUEST")
				return
			}
			limit = n
		}

		cmds, err := cfg.Repository.ListCommands(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list commands", "INTERNAL_ERROR")
			return
		}

		resp := CommandsResponse{Commands: make([]CommandResponse, len(cmds))}
		for i, c := range cmds {
			resp.Commands[i] = CommandToResponse(c)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func deleteClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ordinal, ok := ordinalParam(w, r)
		if !ok {
			return
		}

		err := cfg.Dispatcher.Do(r.Context(), "delete-clip", dispatch.OriginAPI, func(ctx context.Context) error {
			return cfg.Controller.DeleteClip(ctx, ordinal)
		})
		if err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, OKResponse{OK: true})
	}
}

func renameClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ordinal, ok := ordinalParam(w, r)
		if !ok {
			return
		}

		var req RenameClipRequest
		if !decodeBody(w, r, &req) {
			return
		}

		err := cfg.Dispatcher.Do(r.Context(), "rename-clip", dispatch.OriginAPI, func(ctx context.Context) error {
			return cfg.Controller.RenameClip(ctx, ordinal, req.Name)
		})
		if err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, OKResponse{OK: true})
	}
}

func getSettingsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Settings.Values())
	}
}

func updateSettingsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateSettingsRequest
		if !decodeBody(w, r, &req) {
			return
		}
		values, err := cfg.Settings.Update(r.Context(), settings.Patch{
			Basename:     req.Basename,
			OutputFolder: req.OutputFolder,
			DarkMode:     req.DarkMode,
		})
		if err != nil {
			writeSettingsError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, values)
	}
}

func listAutoSavesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		saves, err := cfg.Controller.ListAutoSaves(r.Context())
		if err != nil {
			writeSessionError(w, err)
			return
		}

		resp := AutoSavesResponse{AutoSaves: make([]AutoSaveResponse, len(saves))}
		for i, s := range saves {
			resp.AutoSaves[i] = AutoSaveResponse{
				Filename:     s.Filename,
				FilePath:     s.FilePath,
				SessionID:    s.SessionID,
				ClipsCount:   s.ClipsCount,
				LastModified: s.LastModified,
				CreatedAt:    s.CreatedAt,
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func openAutoSaveHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename := chi.URLParam(r, "filename")
		if filename == "" {
			WriteError(w, http.StatusBadRequest, "filename is required", "BAD_REQUEST")
			return
		}

		err := cfg.Dispatcher.Do(r.Context(), "open-autosave", dispatch.OriginAPI, func(ctx context.Context) error {
			return cfg.Controller.OpenAutoSave(ctx, filename)
		})
		if err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, OKResponse{OK: true})
	}
}

func ordinalParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "ordinal"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "ordinal must be a number", "BAD_REQUEST")
		return 0, false
	}
	return n, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return false
	}
	return true
}

func writeDispatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dispatch.ErrQueueFull):
		WriteError(w, http.StatusServiceUnavailable, err.Error(), "QUEUE_FULL")
	case errors.Is(err, dispatch.ErrStopped):
		WriteError(w, http.StatusServiceUnavailable, err.Error(), "STOPPED")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}

func writeSessionError(w http.ResponseWriter, err error) {
	var be *backend.Error
	switch {
	case errors.Is(err, dispatch.ErrQueueFull), errors.Is(err, dispatch.ErrStopped):
		writeDispatchError(w, err)
	case errors.Is(err, context.Canceled):
		WriteError(w, http.StatusRequestTimeout, "request cancelled", "CANCELLED")
	case errors.Is(err, session.ErrNoSuchClip):
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, session.ErrEmptyName):
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	case errors.Is(err, session.ErrNoSession):
		WriteError(w, http.StatusConflict, err.Error(), "NO_SESSION")
	case errors.As(err, &be) && be.IsTimeout():
		WriteError(w, http.StatusGatewayTimeout, err.Error(), "BACKEND_TIMEOUT")
	case errors.As(err, &be):
		WriteError(w, http.StatusBadGateway, err.Error(), "BACKEND_ERROR")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}

func writeSettingsError(w http.ResponseWriter, err error) {
	if errors.Is(err, settings.ErrEmptyBasename) {
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		return
	}
	WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_SETTING")
}
