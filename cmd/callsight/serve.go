package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"callsight/internal/logger"
	"callsight/internal/report"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the report dashboards over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, p, err := openPipeline()
			if err != nil {
				return err
			}
			defer st.Close()

			log := logger.New().WithField("service", "callsight")
			mux := http.NewServeMux()

			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				logger.New().WithRequest(r).Info("health check")
				fmt.Fprint(w, "ok")
			})

			mux.HandleFunc("/report/agents", func(w http.ResponseWriter, r *http.Request) {
				reqLog := logger.New().WithRequest(r).WithField("handler", "report-agents")
				rep, err := p.BuildReport(r.Context())
				if err != nil {
					reqLog.WithError(err).Error("report build failed")
					http.Error(w, "report build failed", http.StatusInternalServerError)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				if err := enc.Encode(rep); err != nil {
					reqLog.WithError(err).Error("failed to write response")
				}
			})

			mux.HandleFunc("/dashboard", func(w http.ResponseWriter, r *http.Request) {
				reqLog := logger.New().WithRequest(r).WithField("handler", "dashboard")
				rep, err := p.BuildReport(r.Context())
				if err != nil {
					reqLog.WithError(err).Error("report build failed")
					http.Error(w, "report build failed", http.StatusInternalServerError)
					return
				}
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				if err := report.RenderHTML(w, rep); err != nil {
					reqLog.WithError(err).Error("failed to render dashboard")
				}
			})

			addr := ":" + cfg.Port
			srv := &http.Server{
				Addr:         addr,
				Handler:      mux,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 60 * time.Second,
				IdleTimeout:  120 * time.Second,
			}
			log.WithField("addr", addr).Info("listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}
	return cmd
}
