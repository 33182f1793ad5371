package controllers

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/address-matcher/app/models"
	"github.com/address-matcher/app/requests"
	"github.com/address-matcher/app/responses"
	"github.com/address-matcher/app/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxBatchSize = 20000

// AddressController serves normalization, parsing and batch jobs.
type AddressController struct {
	addressService *services.AddressService
	logger         *zap.Logger
}

func NewAddressController(addressService *services.AddressService, logger *zap.Logger) *AddressController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AddressController{addressService: addressService, logger: logger}
}

// Normalize handles POST /v1/addresses/normalize.
func (ac *AddressController) Normalize(c *gin.Context) {
	var req requests.NormalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request: "+err.Error())
		return
	}

	texts := req.Addresses
	if req.Address != "" {
		texts = append([]string{req.Address}, texts...)
	}
	switch {
	case len(texts) == 0:
		respondError(c, http.StatusBadRequest, "EMPTY_INPUT", "address or addresses is required")
		return
	case len(texts) > maxBatchSize:
		respondError(c, http.StatusBadRequest, "BATCH_TOO_LARGE", "at most 20000 addresses per request")
		return
	}

	c.JSON(http.StatusOK, responses.NormalizeResponse{
		Normalized: ac.addressService.Normalize(texts),
		VersionTag: ac.addressService.VersionTag(),
	})
}

// ParseAddress handles POST /v1/addresses/parse.
func (ac *AddressController) ParseAddress(c *gin.Context) {
	var req requests.ParseAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request: "+err.Error())
		return
	}

	start := time.Now()
	res, hit, err := ac.addressService.ParseAddress(c.Request.Context(), req.Address, req.Options)
	if err != nil {
		if errors.Is(err, services.ErrEmptyAddress) {
			respondError(c, http.StatusBadRequest, "EMPTY_INPUT", err.Error())
			return
		}
		ac.logger.Error("Parse failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "PARSE_ERROR", err.Error())
		return
	}

	c.JSON(http.StatusOK, responses.ParseAddressResponse{
		Result:           res,
		VersionTag:       ac.addressService.VersionTag(),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		CacheHit:         hit,
	})
}

// BatchParse handles POST /v1/addresses/jobs.
func (ac *AddressController) BatchParse(c *gin.Context) {
	var req requests.BatchParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request: "+err.Error())
		return
	}

	jobID := ac.addressService.StartBatchJob(req.Addresses, req.Options)
	ac.logger.Info("Batch job accepted", zap.String("job_id", jobID), zap.Int("total_addresses", len(req.Addresses)))

	c.JSON(http.StatusAccepted, responses.BatchParseResponse{
		JobID:            jobID,
		EstimatedSeconds: ac.addressService.EstimateBatchProcessingTime(len(req.Addresses)),
		TotalAddresses:   len(req.Addresses),
		Message:          "job queued",
	})
}

// GetJobStatus handles GET /v1/addresses/jobs/:jobID/status.
func (ac *AddressController) GetJobStatus(c *gin.Context) {
	job, err := ac.addressService.GetJobStatus(c.Param("jobID"))
	if err != nil {
		respondError(c, http.StatusNotFound, "JOB_NOT_FOUND", err.Error())
		return
	}
	c.JSON(http.StatusOK, responses.JobStatusResponse{
		JobID:     job.JobID,
		Status:    job.Status,
		Progress:  job.Progress,
		Processed: job.Processed,
		Total:     job.Total,
		Message:   job.Message,
	})
}

// GetJobResults handles GET /v1/addresses/jobs/:jobID/results. With
// ?format=ndjson the results stream one per line; ?gzip=1 compresses the
// stream.
func (ac *AddressController) GetJobResults(c *gin.Context) {
	jobID := c.Param("jobID")
	job, err := ac.addressService.GetJobStatus(jobID)
	if err != nil {
		respondError(c, http.StatusNotFound, "JOB_NOT_FOUND", err.Error())
		return
	}
	if job.Status != responses.JobStatusDone {
		respondError(c, http.StatusConflict, "JOB_NOT_READY", "job is "+job.Status)
		return
	}
	results, err := ac.addressService.GetJobResults(jobID)
	if err != nil {
		respondError(c, http.StatusNotFound, "JOB_NOT_FOUND", err.Error())
		return
	}

	if c.Query("format") == "ndjson" {
		ac.streamNDJSON(c, results, c.Query("gzip") == "1")
		return
	}
	c.JSON(http.StatusOK, gin.H{"job_id": jobID, "results": results})
}

func (ac *AddressController) streamNDJSON(c *gin.Context, results []*models.AddressResult, gzipEnabled bool) {
	c.Header("Content-Type", "application/x-ndjson")
	c.Status(http.StatusOK)

	var writer gin.ResponseWriter = c.Writer
	if gzipEnabled {
		c.Header("Content-Encoding", "gzip")
		gzWriter := gzip.NewWriter(c.Writer)
		defer gzWriter.Close()
		writer = &gzipResponseWriter{ResponseWriter: c.Writer, gzWriter: gzWriter}
	}

	encoder := json.NewEncoder(writer)
	for _, res := range results {
		if err := encoder.Encode(res); err != nil {
			ac.logger.Error("NDJSON encode failed", zap.Error(err))
			return
		}
	}
	writer.Flush()
}

type gzipResponseWriter struct {
	gin.ResponseWriter
	gzWriter *gzip.Writer
}

func (w *gzipResponseWriter) Write(data []byte) (int, error) {
	return w.gzWriter.Write(data)
}

func (w *gzipResponseWriter) WriteString(s string) (int, error) {
	return w.gzWriter.Write([]byte(s))
}

func (w *gzipResponseWriter) Flush() {
	w.gzWriter.Flush()
	w.ResponseWriter.Flush()
}

// HealthCheck reports liveness plus the state of optional backends.
func (ac *AddressController) HealthCheck(c *gin.Context) {
	backends := map[string]string{"address_parser": "healthy", "cache": "disabled"}
	status := "healthy"
	if cache := ac.addressService.Cache(); cache != nil {
		if _, err := cache.GetStats(c.Request.Context()); err != nil {
			backends["cache"] = "unhealthy"
			status = "degraded"
		} else {
			backends["cache"] = "healthy"
		}
	}

	c.JSON(http.StatusOK, responses.HealthCheckResponse{
		Status:    status,
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(ac.addressService.GetStartTime()).Round(time.Second).String(),
		Version:   ac.addressService.VersionTag(),
		Services:  backends,
	})
}

// respondError writes the shared error envelope.
func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, responses.ErrorResponse{
		Error:     code,
		Message:   strings.TrimSpace(message),
		Timestamp: time.Now().Format(time.RFC3339),
		RequestID: c.GetString("request_id"),
	})
}
