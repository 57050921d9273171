package health

import (
	"net/http"
	"testing"
	"time"

	"github.com/giygas/kalimati-scraper/marketparser/entities"
)

// MockSnapshotStore for testing
type MockSnapshotStore struct {
	records     []entities.StandardRecord
	mapping     entities.ProductMapping
	sourceFile  string
	lastUpdated time.Time
	startTime   time.Time
	isUpdating  bool
}

func (m *MockSnapshotStore) GetRecords() []entities.StandardRecord { return m.records }
func (m *MockSnapshotStore) GetMapping() entities.ProductMapping   { return m.mapping }
func (m *MockSnapshotStore) GetSourceFile() string                 { return m.sourceFile }
func (m *MockSnapshotStore) GetLastUpdated() time.Time             { return m.lastUpdated }
func (m *MockSnapshotStore) GetServerStartTime() time.Time         { return m.startTime }
func (m *MockSnapshotStore) IsUpdating() bool                      { return m.isUpdating }

func someRecords() []entities.StandardRecord {
	return []entities.StandardRecord{{NepaliName: "आलु"}, {NepaliName: "केरा"}}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name           string
		store          *MockSnapshotStore
		expectedStatus string
		expectedCode   int
	}{
		{
			name:           "fresh data",
			store:          &MockSnapshotStore{records: someRecords(), lastUpdated: time.Now().Add(-time.Hour)},
			expectedStatus: "healthy",
			expectedCode:   http.StatusOK,
		},
		{
			name:           "just under degraded threshold",
			store:          &MockSnapshotStore{records: someRecords(), lastUpdated: time.Now().Add(-25 * time.Hour)},
			expectedStatus: "healthy",
			expectedCode:   http.StatusOK,
		},
		{
			name:           "older than 26 hours",
			store:          &MockSnapshotStore{records: someRecords(), lastUpdated: time.Now().Add(-27 * time.Hour)},
			expectedStatus: "degraded",
			expectedCode:   http.StatusServiceUnavailable,
		},
		{
			name:           "older than 48 hours",
			store:          &MockSnapshotStore{records: someRecords(), lastUpdated: time.Now().Add(-49 * time.Hour)},
			expectedStatus: "unhealthy",
			expectedCode:   http.StatusServiceUnavailable,
		},
		{
			name:           "no snapshot loaded",
			store:          &MockSnapshotStore{},
			expectedStatus: "unhealthy",
			expectedCode:   http.StatusServiceUnavailable,
		},
		{
			name:           "empty snapshot",
			store:          &MockSnapshotStore{records: []entities.StandardRecord{}, lastUpdated: time.Now()},
			expectedStatus: "unhealthy",
			expectedCode:   http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _, code := NewHealthChecker(tt.store).HealthCheck()
			if status != tt.expectedStatus {
				t.Errorf("Expected status %s, got %s", tt.expectedStatus, status)
			}
			if code != tt.expectedCode {
				t.Errorf("Expected HTTP %d, got %d", tt.expectedCode, code)
			}
		})
	}
}

func TestHealthCheckData(t *testing.T) {
	store := &MockSnapshotStore{
		records:     someRecords(),
		mapping:     entities.ProductMapping{"आलु": "Potato", "केरा": "", "प्याज": ""},
		sourceFile:  "data/kalimati_market_data_20261014_060000.json",
		lastUpdated: time.Now().Add(-90 * time.Minute),
		startTime:   time.Now().Add(-time.Minute),
		isUpdating:  true,
	}

	_, data, _ := NewHealthChecker(store).HealthCheck()

	if data["records"] != 2 {
		t.Errorf("Expected 2 records, got %v", data["records"])
	}
	if data["mapping_entries"] != 3 {
		t.Errorf("Expected 3 mapping entries, got %v", data["mapping_entries"])
	}
	if data["untranslated"] != 2 {
		t.Errorf("Expected 2 untranslated, got %v", data["untranslated"])
	}
	if data["is_updating"] != true {
		t.Errorf("Expected is_updating true, got %v", data["is_updating"])
	}
	if data["data_age_hours"] != 1.5 {
		t.Errorf("Expected data age 1.5h, got %v", data["data_age_hours"])
	}
	if data["source_file"] != store.sourceFile {
		t.Errorf("Unexpected source file %v", data["source_file"])
	}
	if _, ok := data["uptime_seconds"]; !ok {
		t.Error("Expected uptime_seconds when the start time is set")
	}
}

func TestHealthCheckDataWithoutSnapshot(t *testing.T) {
	_, data, _ := NewHealthChecker(&MockSnapshotStore{}).HealthCheck()

	if _, ok := data["last_update"]; ok {
		t.Error("Expected no last_update without a snapshot")
	}
	if _, ok := data["uptime_seconds"]; ok {
		t.Error("Expected no uptime without a start time")
	}
}
