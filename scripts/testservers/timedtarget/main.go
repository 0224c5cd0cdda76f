// Command timedtarget is a sample measured service for local runs.
// Every path sleeps a configurable amount of simulated work and reports
// its own elapsed time in the X-Response-Time header with five
// fractional digits, the format ratbench parses. /health serves a
// readiness document and /stop shuts the process down.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

func main() {
	port := flag.Int("port", 5050, "Listening port")
	delay := flag.Duration("delay", 5*time.Millisecond, "Simulated work per request")
	jitter := flag.Duration("jitter", 2*time.Millisecond, "Extra uniform random work, 0..jitter")
	warm := flag.Duration("warm", 0, "Time before /health reports UP")
	failRate := flag.Float64("fail-rate", 0, "Probability of responding 500")
	flag.Parse()

	started := time.Now()
	var served atomic.Int64

	stop := make(chan struct{})
	var stopOnce sync.Once

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status, code := "UP", http.StatusOK
		if time.Since(started) < *warm {
			status, code = "STARTING", http.StatusServiceUnavailable
		}
		respondJSON(w, code, map[string]any{
			"status": status,
			"uptime": time.Since(started).String(),
			"served": served.Load(),
		})
	})

	mux.HandleFunc("/stop", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{"stopping": true})
		stopOnce.Do(func() { close(stop) })
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		work := *delay
		if *jitter > 0 {
			work += time.Duration(rand.Int63n(int64(*jitter)))
		}
		time.Sleep(work)
		served.Add(1)

		if *failRate > 0 && rand.Float64() < *failRate {
			http.Error(w, "injected failure", http.StatusInternalServerError)
			return
		}

		elapsed := float64(time.Since(began)) / float64(time.Millisecond)
		w.Header().Set("X-Response-Time", fmt.Sprintf("%.5f", elapsed))
		respondJSON(w, http.StatusOK, map[string]any{"ok": true, "path": r.URL.Path})
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", *port), Handler: mux}
	go func() {
		<-stop
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	log.Printf("timed target listening on %s (delay=%s jitter=%s)", srv.Addr, *delay, *jitter)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
	log.Printf("stopped")
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
