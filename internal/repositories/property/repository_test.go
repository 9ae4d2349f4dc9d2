package property_test

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mohamedelfert/bayut-dubizzle-xml/internal/repositories/property"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/database"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/models"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func getTestDB(t *testing.T) database.DB {
	// Use environment variables or defaults for test DB
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}
	dbUser := os.Getenv("DB_USER_NAME")
	if dbUser == "" {
		dbUser = "user"
	}
	dbPass := os.Getenv("DB_PASSWORD")
	if dbPass == "" {
		dbPass = "password"
	}
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "propertysync"
	}

	dsn := "host=" + dbHost + " user=" + dbUser + " password=" + dbPass + " dbname=" + dbName + " sslmode=disable"
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err, "Failed to connect to test database")

	return database.NewDatabaseInstance(db, getTestLogger())
}

func testProperty(refNo string) *models.Property {
	return &models.Property{
		PropertyRefNo:       refNo,
		PermitNumber:        refNo,
		PropertyStatus:      models.StatusLive,
		PropertyPurpose:     models.PurposeSale,
		PropertyType:        "Apartment",
		PropertySize:        1200,
		PropertySizeUnit:    "SQFT",
		Bedrooms:            2,
		Bathrooms:           2,
		City:                "Dubai",
		Locality:            "Downtown Dubai",
		PropertyTitle:       "Test Apartment",
		PropertyDescription: "A test apartment",
		Price:               850000,
		Furnished:           models.FurnishedNo,
		Features:            models.StringList{"Pool"},
		Images:              models.StringList{},
		Videos:              models.StringList{},
		Portals:             models.StringList{"Bayut", "dubizzle"},
		ListingAgent:        "Test Agent",
		ListingAgentPhone:   "+971-50-000-0000",
		ListingAgentEmail:   "agent@test.com",
		LastUpdated:         time.Now().UTC().Truncate(time.Second),
	}
}

func TestPropertyRepository_UpsertAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := property.NewRepository(db, getTestLogger())
	ctx := context.Background()

	refNo := "TEST-" + uuid.New().String()
	p := testProperty(refNo)

	// First upsert inserts
	result, err := repo.Upsert(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, models.UpsertCreated, result)

	fetched, err := repo.GetByRefNo(ctx, refNo)
	require.NoError(t, err)
	assert.Equal(t, refNo, fetched.PropertyRefNo)
	assert.Equal(t, p.Price, fetched.Price)
	assert.Equal(t, models.StringList{"Pool"}, fetched.Features)

	// Second upsert with changed fields updates in place
	p.Price = 900000
	p.PropertyStatus = models.StatusInactive
	result, err = repo.Upsert(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, models.UpsertUpdated, result)

	fetched, err = repo.GetByRefNo(ctx, refNo)
	require.NoError(t, err)
	assert.Equal(t, float64(900000), fetched.Price)
	assert.Equal(t, models.StatusInactive, fetched.PropertyStatus)

	// Unchanged upsert stays an update, no duplicate rows
	result, err = repo.Upsert(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, models.UpsertUpdated, result)
}

func TestPropertyRepository_GetByRefNoNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := property.NewRepository(db, getTestLogger())

	_, err := repo.GetByRefNo(context.Background(), "TEST-"+uuid.New().String())
	require.Error(t, err)
	assert.True(t, httperror.IsHTTPError(err))
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}

func TestPropertyRepository_ListPortalFilter(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := property.NewRepository(db, getTestLogger())
	ctx := context.Background()

	refNo := "TEST-" + uuid.New().String()
	p := testProperty(refNo)
	p.Portals = models.StringList{"Bayut"}

	_, err := repo.Upsert(ctx, p)
	require.NoError(t, err)

	bayut, err := repo.List(ctx, "Bayut")
	require.NoError(t, err)
	assert.True(t, containsRef(bayut, refNo))

	dubizzle, err := repo.List(ctx, "dubizzle")
	require.NoError(t, err)
	assert.False(t, containsRef(dubizzle, refNo))
}

func containsRef(properties []models.Property, refNo string) bool {
	for _, p := range properties {
		if p.PropertyRefNo == refNo {
			return true
		}
	}
	return false
}
