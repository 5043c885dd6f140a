package stores_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/milestoner/milestoner/pkg/stores"
)

// ExampleNewSQLiteStore demonstrates creating and initializing a new SQLite store.
func ExampleNewSQLiteStore() {
	store, err := stores.NewSQLiteStore(stores.Config{
		Path:            ":memory:", // Use in-memory database for example
		ConnMaxLifetime: 5 * time.Minute,
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		log.Fatal(err)
	}

	if err := store.Migrate(ctx); err != nil {
		log.Fatal(err)
	}

	defer store.Close()

	fmt.Println("Store initialized successfully")
	// Output: Store initialized successfully
}

// ExampleSQLiteStore_CreateRun records a run and marks it completed.
func ExampleSQLiteStore_CreateRun() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	run := &stores.Run{
		ID:        "run-001",
		Timeline:  "CPT-Alpha",
		InputPath: "/inputs/timelines.xlsx",
	}
	if err := store.CreateRun(ctx, run); err != nil {
		log.Fatal(err)
	}

	if err := store.CompleteRun(ctx, run.ID, stores.RunStatusCompleted, nil); err != nil {
		log.Fatal(err)
	}

	retrieved, err := store.GetRun(ctx, "run-001")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Run ID: %s, Timeline: %s, Status: %s\n", retrieved.ID, retrieved.Timeline, retrieved.Status)
	// Output: Run ID: run-001, Timeline: CPT-Alpha, Status: completed
}

// ExampleSQLiteStore_AppendEvent demonstrates the append-only event log.
func ExampleSQLiteStore_AppendEvent() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	runID := "run-002"
	_ = store.CreateRun(ctx, &stores.Run{ID: runID, Timeline: "CPT-Beta"})

	for _, msg := range []string{"Layout started", "Layout complete"} {
		if err := store.AppendEvent(ctx, &stores.Event{
			RunID:   &runID,
			Level:   stores.EventLevelInfo,
			Message: msg,
		}); err != nil {
			log.Fatal(err)
		}
	}

	events, err := store.GetEvents(ctx, &runID, nil, 0, 0)
	if err != nil {
		log.Fatal(err)
	}

	for _, e := range events {
		fmt.Println(e.Level, e.Message)
	}
	// Output:
	// info Layout started
	// info Layout complete
}
