package scan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/contract-scanner/internal/errors"
	"github.com/contract-scanner/internal/history"
	"github.com/contract-scanner/internal/logging"
	"github.com/contract-scanner/internal/models"
	"github.com/contract-scanner/internal/types"
)

const (
	// DefaultWorkers is the number of concurrent scan workers per batch
	DefaultWorkers = 5
	// DefaultItemTimeout bounds a single scan within a batch
	DefaultItemTimeout = 30 * time.Second
)

// OrchestratorConfig configures the batch orchestrator
type OrchestratorConfig struct {
	Engine      Engine
	History     history.Store
	Workers     int
	ItemTimeout time.Duration
}

// Validate checks the configuration
func (c *OrchestratorConfig) Validate() error {
	if c.Engine == nil {
		return fmt.Errorf("engine is required")
	}
	if c.History == nil {
		return fmt.Errorf("history store is required")
	}
	return nil
}

// Orchestrator runs admitted scan batches through a bounded worker pool.
// Results come back in request order and one failing item never aborts
// the rest of the batch.
type Orchestrator struct {
	engine      Engine
	history     history.Store
	workers     int
	itemTimeout time.Duration
}

// NewOrchestrator creates a new batch orchestrator
func NewOrchestrator(cfg *OrchestratorConfig) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid orchestrator config: %w", err)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	itemTimeout := cfg.ItemTimeout
	if itemTimeout <= 0 {
		itemTimeout = DefaultItemTimeout
	}

	return &Orchestrator{
		engine:      cfg.Engine,
		history:     cfg.History,
		workers:     workers,
		itemTimeout: itemTimeout,
	}, nil
}

type indexedRequest struct {
	index   int
	request models.ScanRequest
}

// ScanOne runs a single admitted scan and records it in history.
func (o *Orchestrator) ScanOne(ctx context.Context, req models.ScanRequest) (*Result, error) {
	scanCtx, cancel := context.WithTimeout(ctx, o.itemTimeout)
	defer cancel()

	result, err := o.engine.Scan(scanCtx, req.ContractAddress, req.Chain)
	if err != nil {
		return nil, err
	}

	o.record(ctx, result)
	return result, nil
}

// ScanBatch runs every request in the batch through the worker pool.
// The batch was already admitted and its quota consumed, so dispatch is
// detached from the caller's cancellation: a dropped client connection
// does not abandon work that was paid for.
func (o *Orchestrator) ScanBatch(ctx context.Context, requests []models.ScanRequest) *models.BatchResult {
	batchCtx := context.WithoutCancel(ctx)

	items := make([]models.BatchItem, len(requests))
	jobs := make(chan indexedRequest)

	var wg sync.WaitGroup
	for w := 0; w < o.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				items[job.index] = o.scanItem(batchCtx, job.request)
			}
		}()
	}

	for i, req := range requests {
		jobs <- indexedRequest{index: i, request: req}
	}
	close(jobs)
	wg.Wait()

	result := &models.BatchResult{
		Total: len(requests),
		Items: items,
	}
	for _, item := range items {
		if item.Status == types.ScanStatusSuccess {
			result.Successful++
		} else {
			result.Failed++
		}
	}

	logging.WithFields(map[string]interface{}{
		"total":      result.Total,
		"successful": result.Successful,
		"failed":     result.Failed,
	}).Info("Batch scan completed")

	return result
}

func (o *Orchestrator) scanItem(ctx context.Context, req models.ScanRequest) models.BatchItem {
	scanCtx, cancel := context.WithTimeout(ctx, o.itemTimeout)
	defer cancel()

	result, err := o.engine.Scan(scanCtx, req.ContractAddress, req.Chain)
	if err != nil {
		logging.WithFields(map[string]interface{}{
			"address": req.ContractAddress,
			"chain":   req.Chain,
		}).WithError(err).Warn("Batch item scan failed")

		return models.BatchItem{
			Request: req,
			Status:  types.ScanStatusError,
			Error:   itemErrorMessage(err),
		}
	}

	o.record(ctx, result)

	return models.BatchItem{
		Request: req,
		Status:  types.ScanStatusSuccess,
		Result:  result,
	}
}

func (o *Orchestrator) record(ctx context.Context, result *Result) {
	record := &models.ScanRecord{
		ScanID:             result.ScanID,
		ContractAddress:    result.ContractAddress,
		Chain:              result.Chain,
		Timestamp:          result.Timestamp,
		SafetyScore:        result.SafetyScore,
		VulnerabilityCount: len(result.Vulnerabilities),
		RugPullCount:       len(result.RugPullIndicators),
	}

	if err := o.history.Append(ctx, record); err != nil {
		// History is best effort; the scan result still stands
		logging.WithFields(map[string]interface{}{
			"scanId": result.ScanID,
			"chain":  result.Chain,
		}).WithError(err).Error("Failed to record scan history")
	}
}

func itemErrorMessage(err error) string {
	if catErr, ok := err.(*errors.CategorizedError); ok {
		return catErr.Message
	}
	return err.Error()
}
