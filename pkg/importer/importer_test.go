package importer_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mohamedelfert/bayut-dubizzle-xml/config"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/crm"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/httpclient"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/importer"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/mapper"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/models"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/validation"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

// memorySink is an in-memory property store keyed by reference.
type memorySink struct {
	mu       sync.Mutex
	byRef    map[string]*models.Property
	failRefs map[string]bool
}

func newMemorySink(failRefs ...string) *memorySink {
	fail := make(map[string]bool, len(failRefs))
	for _, ref := range failRefs {
		fail[ref] = true
	}
	return &memorySink{
		byRef:    make(map[string]*models.Property),
		failRefs: fail,
	}
}

func (s *memorySink) Upsert(_ context.Context, property *models.Property) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failRefs[property.PropertyRefNo] {
		return "", errors.New("connection refused")
	}

	result := models.UpsertCreated
	if _, ok := s.byRef[property.PropertyRefNo]; ok {
		result = models.UpsertUpdated
	}
	s.byRef[property.PropertyRefNo] = property
	return result, nil
}

// recordingEmitter captures emitted events for assertions.
type recordingEmitter struct {
	upserted  []string
	failed    []string
	completed int
	aborted   int
}

func (e *recordingEmitter) EmitPropertyUpserted(_ context.Context, _ string, _ *models.Property, result string) {
	e.upserted = append(e.upserted, result)
}

func (e *recordingEmitter) EmitPropertyFailed(_ context.Context, _, refNo, _ string) {
	e.failed = append(e.failed, refNo)
}

func (e *recordingEmitter) EmitRunCompleted(_ context.Context, _ *models.ImportReport, aborted bool) {
	if aborted {
		e.aborted++
		return
	}
	e.completed++
}

// newCRMServer serves the token endpoint and a broker inventory returning the
// given records under the paginated envelope.
func newCRMServer(records []any) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "run-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/units", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"data": records},
		})
	})
	return httptest.NewServer(mux)
}

func newTestImporter(server *httptest.Server, sink importer.Sink, emitter importer.EventEmitter) *importer.Importer {
	logger := getTestLogger()
	cfg := &config.Config{
		CRMTokenURL:        server.URL + "/oauth/token",
		CRMInventoryURL:    server.URL + "/units",
		CRMClientID:        "test-client",
		CRMClientSecret:    "test-secret",
		CRMUsername:        "importer@agency.com",
		CRMPassword:        "hunter2",
		CRMAuthTimeout:     5 * time.Second,
		CRMAuthRetries:     1,
		CRMAuthRetryDelay:  10 * time.Millisecond,
		CRMFetchTimeout:    5 * time.Second,
		CRMFetchRetries:    1,
		CRMFetchRetryDelay: 10 * time.Millisecond,
		CRMLocale:          "en",
	}

	httpClient := httpclient.NewClient(httpclient.DefaultConfig(), logger)
	source := crm.NewClient(httpClient, nil, cfg, logger)

	return importer.New(source, sink, mapper.New(logger), validation.New(), emitter, logger)
}

// crmRecord is a complete broker inventory unit that maps and validates clean.
func crmRecord(unitCode string) map[string]any {
	return map[string]any{
		"id":                      1001,
		"unit_code":               unitCode,
		"title":                   "Marina View 2BR",
		"description":             "Two bedroom apartment with marina views",
		"availability":            "Available",
		"bi_purpose_id":           1,
		"bi_purpose_type_id":      1,
		"area":                    1200,
		"bi_bedroom_id":           2,
		"bi_bathroom_id":          2,
		"city_id":                 110,
		"area_place_id":           53131,
		"price":                   850000,
		"currency_code":           "AED",
		"bi_furnishing_status_id": 2,
		"is_delivered":            1,
		"updated_at":              "2026-07-15 08:30:00",
		"seller": map[string]any{
			"name":  "Jane Agent",
			"phone": "+971-50-000-0000",
			"email": "jane@agency.com",
		},
	}
}

func TestRunImportsRecords(t *testing.T) {
	server := newCRMServer([]any{crmRecord("U-1001")})
	defer server.Close()

	sink := newMemorySink()
	report, err := newTestImporter(server, sink, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Extracted)
	assert.Equal(t, 0, report.Filtered)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 0, report.Updated)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.NotZero(t, report.RunID)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	stored := sink.byRef["U-1001"]
	require.NotNil(t, stored)
	assert.Equal(t, "U-1001", stored.PropertyRefNo)
	assert.Equal(t, "U-1001", stored.PermitNumber)
	assert.Equal(t, models.StatusLive, stored.PropertyStatus)
	assert.Equal(t, models.PurposeSale, stored.PropertyPurpose)
	assert.Equal(t, "Apartment", stored.PropertyType)
	assert.Equal(t, float64(850000), stored.Price)
	assert.Equal(t, 2, stored.Bedrooms)
	assert.Equal(t, "Dubai", stored.City)
	assert.Equal(t, "Downtown Dubai", stored.Locality)
	assert.Equal(t, "Jane Agent", stored.ListingAgent)
	assert.Equal(t, models.StringList{"Bayut", "dubizzle"}, stored.Portals)
	assert.Equal(t, time.Date(2026, 7, 15, 8, 30, 0, 0, time.UTC), stored.LastUpdated)
	assert.Nil(t, stored.RentFrequency)
}

func TestRunConvertsEgyptianPrices(t *testing.T) {
	record := crmRecord("U-EGP")
	record["price"] = 1555555
	record["currency_code"] = "EGP"

	server := newCRMServer([]any{record})
	defer server.Close()

	sink := newMemorySink()
	_, err := newTestImporter(server, sink, nil).Run(context.Background())
	require.NoError(t, err)

	require.NotNil(t, sink.byRef["U-EGP"])
	assert.Equal(t, float64(155556), sink.byRef["U-EGP"].Price)
}

func TestRunSkipsInvalidRecords(t *testing.T) {
	invalid := crmRecord("U-BAD")
	invalid["seller"] = map[string]any{"email": "not-an-email"}

	server := newCRMServer([]any{crmRecord("U-1"), invalid, crmRecord("U-2")})
	defer server.Close()

	sink := newMemorySink()
	report, err := newTestImporter(server, sink, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Extracted)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, 1, report.Failures[0].Index)
	assert.Equal(t, "U-BAD", report.Failures[0].Reference)
	assert.Equal(t, "validation", report.Failures[0].Stage)
	assert.Contains(t, report.Failures[0].Reason, "listing_agent")

	assert.NotNil(t, sink.byRef["U-1"])
	assert.NotNil(t, sink.byRef["U-2"])
	assert.Nil(t, sink.byRef["U-BAD"])
}

func TestRunCompletesWithNoRecords(t *testing.T) {
	server := newCRMServer([]any{})
	defer server.Close()

	sink := newMemorySink()
	report, err := newTestImporter(server, sink, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Extracted)
	assert.Equal(t, 0, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.Empty(t, sink.byRef)
}

func TestRunFiltersRecordsWithoutIdentity(t *testing.T) {
	noIdentity := map[string]any{"price": 500, "area": 80}

	server := newCRMServer([]any{crmRecord("U-1"), noIdentity})
	defer server.Close()

	sink := newMemorySink()
	report, err := newTestImporter(server, sink, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Extracted)
	assert.Equal(t, 1, report.Filtered)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
}

func TestRunIsIdempotent(t *testing.T) {
	server := newCRMServer([]any{crmRecord("U-1"), crmRecord("U-2")})
	defer server.Close()

	sink := newMemorySink()
	imp := newTestImporter(server, sink, nil)

	first, err := imp.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)
	assert.Equal(t, 0, first.Updated)

	second, err := imp.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 2, second.Updated)
	assert.Equal(t, 2, second.Succeeded)
	assert.Len(t, sink.byRef, 2)
}

func TestRunContinuesOnSinkFailure(t *testing.T) {
	server := newCRMServer([]any{crmRecord("U-1"), crmRecord("U-2")})
	defer server.Close()

	sink := newMemorySink("U-1")
	report, err := newTestImporter(server, sink, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "sink", report.Failures[0].Stage)
	assert.Equal(t, "U-1", report.Failures[0].Reference)
	assert.NotNil(t, sink.byRef["U-2"])
}

func TestRunAbortsOnAuthenticationFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_credentials"}`))
	}))
	defer server.Close()

	sink := newMemorySink()
	report, err := newTestImporter(server, sink, nil).Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Contains(t, err.Error(), "aborted")
	assert.Contains(t, err.Error(), "authentication")
	assert.Empty(t, sink.byRef)
}

func TestRunAbortsOnFetchFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "run-token"})
	})
	mux.HandleFunc("/units", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	sink := newMemorySink()
	report, err := newTestImporter(server, sink, nil).Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Contains(t, err.Error(), "fetch")
	assert.Empty(t, sink.byRef)
}

func TestRunEmitsEvents(t *testing.T) {
	invalid := crmRecord("U-BAD")
	invalid["seller"] = map[string]any{"email": "not-an-email"}

	server := newCRMServer([]any{crmRecord("U-1"), invalid})
	defer server.Close()

	emitter := &recordingEmitter{}
	_, err := newTestImporter(server, newMemorySink(), emitter).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{models.UpsertCreated}, emitter.upserted)
	assert.Equal(t, []string{"U-BAD"}, emitter.failed)
	assert.Equal(t, 1, emitter.completed)
	assert.Equal(t, 0, emitter.aborted)
}
