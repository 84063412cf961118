package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/matst80/linewire/internal/obs"
	"github.com/matst80/linewire/internal/presence"
	"github.com/matst80/linewire/internal/server"
	"github.com/matst80/linewire/internal/transport"
	"github.com/matst80/linewire/internal/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// admin serves metrics, health, state and the passcode and gate controls.
type admin struct {
	handle *transport.ServerHandle
	srv    *server.Server
	store  presence.Store
}

func (a *admin) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, collectStats(r.Context(), a.srv, a.store))
	})
	mux.HandleFunc("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		st := collectStats(r.Context(), a.srv, a.store)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := web.Render(w, "dashboard", st.ToTemplateMap()); err != nil {
			w.WriteHeader(http.StatusNotImplemented)
			_, _ = w.Write([]byte("dashboard template missing"))
		}
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !a.handle.Exists() || a.srv.Closed() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("POST /api/passcode", a.setPasscode)
	mux.HandleFunc("DELETE /api/passcode", func(w http.ResponseWriter, r *http.Request) {
		if err := a.handle.DisablePasscode(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"passcode": false})
	})
	mux.HandleFunc("POST /api/connections/{action}", a.connections)
	return mux
}

// setPasscode sets the passcode from the "code" form value, or generates one of
// "length" characters when no code is given. The new passcode is returned.
func (a *admin) setPasscode(w http.ResponseWriter, r *http.Request) {
	var (
		code string
		err  error
	)
	if c := r.FormValue("code"); c != "" {
		code, err = a.handle.EnablePasscode(c)
	} else {
		n := 0
		if l := r.FormValue("length"); l != "" {
			if n, err = strconv.Atoi(l); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "length must be a number"})
				return
			}
		}
		code, err = a.handle.EnableRandomPasscode(n)
	}
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	obs.Info("admin.passcode", obs.Fields{"remote": r.RemoteAddr})
	writeJSON(w, http.StatusOK, map[string]any{"passcode": true, "code": code})
}

func (a *admin) connections(w http.ResponseWriter, r *http.Request) {
	var err error
	action := r.PathValue("action")
	switch action {
	case "enable-all":
		err = a.handle.EnableAllConnections()
	case "disable-all":
		err = a.handle.DisableAllConnections()
	case "enable-new":
		err = a.handle.EnableNewConnections()
	case "disable-new":
		err = a.handle.DisableNewConnections()
	case "close-all":
		err = a.handle.CloseAllConnections()
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown action " + action})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	obs.Info("admin.connections", obs.Fields{"action": action, "remote": r.RemoteAddr})
	writeJSON(w, http.StatusOK, a.srv.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// startMetricsServer serves Prometheus metrics plus the dashboard and admin endpoints.
func startMetricsServer(srv *http.Server) {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		obs.Error("metrics.server", obs.Fields{"err": err.Error(), "addr": srv.Addr})
	}
}
