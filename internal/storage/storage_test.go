package storage_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/luckymifta/dash-atm-collector/internal/model"
	"github.com/luckymifta/dash-atm-collector/internal/storage"

	"github.com/rs/zerolog"
)

// testStore connects to a real database when ATM_COLLECTOR_TEST_DSN is
// set, mirroring the examples' pattern of skipping integration tests
// that need a live Postgres instance rather than faking the driver.
func testStore(t *testing.T) *storage.Store {
	t.Helper()
	dsn := os.Getenv("ATM_COLLECTOR_TEST_DSN")
	if dsn == "" {
		t.Skip("ATM_COLLECTOR_TEST_DSN not set, skipping storage integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := storage.Open(ctx, dsn, false, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(store.Close)

	require.NoError(t, store.EnsureSchema(ctx))
	return store
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.EnsureSchema(ctx))
}

func TestSaveRegionalSnapshotSucceeds(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	snap := model.RegionalSnapshot{
		UniqueRequestID:   uuid.New(),
		RegionCode:        model.RegionCodeTimorLesteDili,
		CountAvailable:    11,
		CountWounded:      2,
		CountWarning:      1,
		DateCreation:      time.Now(),
		TotalATMsInRegion: 14,
		RawRegionalData:   []byte(`{"hc-key":"TL-DL"}`),
	}

	require.NoError(t, store.SaveRegionalSnapshot(ctx, snap))
}

func TestSaveCashRecordsHandlesNullRecords(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	nullReason := model.NullReasonNoBody
	records := []model.CashRecord{
		{
			UniqueRequestID:    uuid.New(),
			TerminalID:         "83",
			RetrievalTimestamp: time.Now(),
			EventDate:          time.Now(),
			IsNullRecord:       true,
			NullReason:         &nullReason,
			CassettesData:      []model.CassetteState{},
		},
	}

	require.NoError(t, store.SaveCashRecords(ctx, records))
}

func TestSaveTerminalStatusRecordsWritesWellFormedRecord(t *testing.T) {
	// FaultData and Metadata marshal unconditionally from well-typed
	// structs, so the marshal-failure skip branch is unreachable from
	// outside the package; this exercises the ordinary success path.
	store := testStore(t)
	ctx := context.Background()

	records := []model.TerminalStatusRecord{
		{
			UniqueRequestID: uuid.New(),
			TerminalID:      "83",
			FetchedStatus:   model.StatusAvailable,
			RetrievedDate:   time.Now(),
			RawTerminalData: []byte(`{}`),
		},
	}

	require.NoError(t, store.SaveTerminalStatusRecords(ctx, records))
}
