package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/causalgraph/crdtdb/crdt"
)

// relationsResponse is the JSON shape /relate returns: the requested
// version's relation to each of the replica's current heads.
type relationsResponse struct {
	Version   string            `json:"version"`
	Relations map[string]string `json:"relations"`
}

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a read-only HTTP query endpoint and Prometheus metrics",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8420", "address to listen on")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := crdt.CreateDb(cfg)
	if err != nil {
		return fmt.Errorf("opening replica: %w", err)
	}
	defer db.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/get", func(w http.ResponseWriter, r *http.Request) {
		root, err := db.GetRoot()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(root)
	})
	mux.HandleFunc("/relate", func(w http.ResponseWriter, r *http.Request) {
		v, err := parseRawVersion(r.URL.Query().Get("version"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		relations, err := db.RelateToHeads(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		resp := relationsResponse{
			Version:   fmt.Sprintf("%s/%d", v.Agent, v.Seq),
			Relations: make(map[string]string, len(relations)),
		}
		for head, rel := range relations {
			resp.Relations[fmt.Sprintf("%s/%d", head.Agent, head.Seq)] = string(rel)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	fmt.Printf("crdtdb listening on %s\n", serveAddr)
	return http.ListenAndServe(serveAddr, mux)
}
