// Package chime provides a timezone-aware countdown trigger scheduler with
// Web Push delivery for Go.
//
// Works both as a library for embedding in your application AND as a standalone
// service with REST API.
//
// # Features
//
//   - Timezone-Aware Triggers: civil target times ("Dec 31, 23:57 local") resolved
//     per owner against IANA timezones with a deterministic DST policy
//   - Web Push Delivery: full RFC 8291 payload encryption (ECDH + HKDF + AES-128-GCM)
//     and RFC 8292 VAPID authorization (ES256 JWT per push-service origin)
//   - At-Most-Once Firing: (trigger, owner, civil date) de-duplication persisted
//     across restarts via unique-constraint inserts, safe for multiple instances
//   - Bounded Retries: 429/5xx responses retried with exponential backoff inside a
//     single firing window, honoring Retry-After; never retried indefinitely
//   - Automatic Invalidation: 404/410 push endpoints remove the subscription
//   - Per-Owner Isolation: one owner's failure never aborts the scheduler tick
//   - Client Countdown State Machine: 1 Hz cooperative machine (Warned → Blinking →
//     Celebrating → Settled) with drift correction against a server reference instant
//   - Options Pattern for modern Go API design
//   - Pluggable architecture: bring your own Logger, TimezoneSource, EligibilitySource
//   - Multi-Database Support: MySQL, PostgreSQL, SQLite via Relica adapters, plus an
//     in-memory registry for embedding and tests
//   - Embedded Migrations for easy database setup
//   - Cloud Native: 12-factor app, ENV config, health checks
//
// # Quick Start
//
// # Option 1: As Embedded Library
//
// First, apply the database migrations, then wire the services:
//
//	import (
//	    "database/sql"
//	    "github.com/mateteriya/chime"
//	    "github.com/mateteriya/chime/adapters/relica"
//	    "github.com/mateteriya/chime/webpush"
//	    _ "github.com/mattn/go-sqlite3"
//	)
//
//	db, _ := sql.Open("sqlite3", "chime.db")
//
//	// Create both repositories at once
//	repos := relica.NewRepositories(db, "sqlite3")
//
//	signer, _ := webpush.NewSigner(vapidPrivate, vapidPublic, "mailto:ops@example.com")
//	dispatcher, _ := webpush.NewDispatcher(webpush.WithSigner(signer))
//
//	scheduler, _ := chime.NewScheduler(
//	    chime.WithRepositories(repos.Subscription, repos.Firing),
//	    chime.WithDispatcher(dispatcher),
//	    chime.WithTriggers(triggers...),
//	    chime.WithTimezoneSource(tzSource),
//	    chime.WithEligibilitySource(eligibility),
//	    chime.WithLogger(logger),
//	)
//
//	// Run scheduler (evaluates triggers every 5 minutes)
//	ctx := context.Background()
//	scheduler.Run(ctx, 5*time.Minute)
//
// # Option 2: As Standalone Service
//
// Run the standalone chime server:
//
//	cd cmd/chime-server
//	go run . # configuration via environment, see internal/config
//
// Access REST API at http://localhost:8080:
//
//	# Register a Web Push subscription
//	curl -X POST http://localhost:8080/api/v1/subscriptions \
//	  -H "Content-Type: application/json" \
//	  -d '{"ownerID":"user-123","endpoint":"https://fcm.googleapis.com/...","keys":{"p256dh":"...","auth":"..."}}'
//
//	# Server reference instant for client drift correction
//	curl http://localhost:8080/api/v1/time
//
// # Architecture
//
// The library follows Clean Architecture and Domain-Driven Design principles:
//
//	┌─────────────────────────────────────┐
//	│         Application Layer           │
//	│  (Scheduler, Registrar, REST API)   │
//	└─────────────┬───────────────────────┘
//	              │
//	┌─────────────▼───────────────────────┐
//	│         Domain Layer                │
//	│  (model: Subscription, Trigger,     │
//	│   Firing, Notification)             │
//	└─────────────┬───────────────────────┘
//	              │
//	┌─────────────▼───────────────────────┐
//	│   Protocol Layer (webpush,          │
//	│   civiltime, retry, countdown)      │
//	└─────────────┬───────────────────────┘
//	              │
//	┌─────────────▼───────────────────────┐
//	│  Adapters (Relica DB, in-memory)    │
//	└─────────────────────────────────────┘
//
// Key principles:
//   - Domain models contain business logic (Firing.Key, Trigger.OpenWindow, etc.)
//   - Repository Pattern abstracts subscription and firing persistence
//   - Dependency Inversion via interfaces (Logger, Dispatcher, TimezoneSource)
//   - Options Pattern for service configuration
//
// # Trigger Flow
//
//  1. TICK (every interval)
//     Scheduler → Snapshot all subscriptions
//     → Resolve each owner's effective timezone (recomputed every tick)
//     → Test each trigger's local civil window for today's date
//
//  2. FIRE (per owner, per trigger, per civil date, at most once)
//     Eligibility predicate → Claim firing (unique-constraint insert)
//     → Encrypt payload + sign VAPID authorization → POST to push endpoint
//     → Record delivery outcome
//
//  3. CLASSIFY
//     2xx → Delivered
//     404/410 → PermanentFailure, subscription removed
//     429/5xx/timeout → TemporaryFailure, bounded in-call retries, then give up
//     until the next natural window
//
// # Database Schema
//
// The library requires 2 database tables (created via embedded migrations):
//
//	chime_subscription - Web Push subscriptions, one live row per owner
//	chime_firing       - Trigger firing records (the de-duplication ledger)
//
// Supports MySQL, PostgreSQL, and SQLite via Relica adapters.
// Table prefix can be customized (default: "chime_").
//
// # Examples
//
// See the examples/ directory for complete working examples including:
//
//   - Basic embedding with database/sql
//   - Custom logger integration
//   - In-memory repositories for tests
//
// For detailed documentation, see README.md and pkg.go.dev.
package chime
