// file: internal/metrics/metrics.go
// version: 1.0.0
// guid: 3e0f1a2b-4c5d-4e6f-9a8b-0c1d2e3f4a5b

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	booksSaved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "booktrack",
		Name:      "books_saved_total",
		Help:      "Total number of book records written (create or update)",
	})
	booksSoftDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "booktrack",
		Name:      "books_soft_deleted_total",
		Help:      "Total number of books soft-deleted",
	})
	backupsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "booktrack",
		Name:      "backups_created_total",
		Help:      "Total number of backup snapshots created",
	})
	restores = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "booktrack",
		Name:      "restores_total",
		Help:      "Total number of completed backup restores",
	})
	transactionFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "booktrack",
		Name:      "transaction_failures_total",
		Help:      "Total number of aborted storage transactions",
	})

	booksGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "booktrack",
		Name:      "books_total",
		Help:      "Current number of live (non-deleted) books",
	})
)

// Register initializes metrics with the global Prometheus registry (idempotent)
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(booksSaved, booksSoftDeleted, backupsCreated,
			restores, transactionFailures, booksGauge)
	})
}

func IncBooksSaved(n int)       { booksSaved.Add(float64(n)) }
func IncBooksSoftDeleted(n int) { booksSoftDeleted.Add(float64(n)) }
func IncBackupsCreated()        { backupsCreated.Inc() }
func IncRestores()              { restores.Inc() }
func IncTransactionFailure()    { transactionFailures.Inc() }
func SetBooksTotal(n int)       { booksGauge.Set(float64(n)) }
