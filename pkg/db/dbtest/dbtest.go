// Package dbtest opens isolated in-memory sqlite databases carrying the
// application schema, for repository and service tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lensbook/lensbook-backend/pkg/db/models"
	"github.com/lensbook/lensbook-backend/pkg/enums"
)

var schema = []string{`
CREATE TABLE users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  full_name TEXT NOT NULL,
  phone TEXT,
  role TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE service_packages (
  id TEXT PRIMARY KEY,
  photographer_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price INTEGER NOT NULL,
  duration_hours INTEGER NOT NULL DEFAULT 0,
  base_lat REAL,
  base_lng REAL,
  travel_fee_enabled INTEGER NOT NULL DEFAULT 0,
  free_distance_km TEXT,
  fee_per_km INTEGER NOT NULL DEFAULT 0,
  max_travel_fee INTEGER,
  travel_fee_note TEXT,
  booked_count INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  order_code TEXT NOT NULL UNIQUE,
  customer_id TEXT NOT NULL,
  photographer_id TEXT,
  service_package_id TEXT NOT NULL,
  service_amount INTEGER NOT NULL,
  travel_fee_amount INTEGER NOT NULL DEFAULT 0,
  discount_amount INTEGER NOT NULL DEFAULT 0,
  total_amount INTEGER NOT NULL,
  final_amount INTEGER NOT NULL,
  deposit_required INTEGER NOT NULL,
  platform_fee_percentage TEXT,
  platform_fee_amount INTEGER NOT NULL DEFAULT 0,
  photographer_earning INTEGER,
  booking_date DATETIME NOT NULL,
  start_time TEXT NOT NULL,
  booking_start DATETIME NOT NULL,
  booking_end DATETIME NOT NULL,
  location TEXT,
  customer_note TEXT,
  status TEXT NOT NULL,
  transfer_code TEXT NOT NULL UNIQUE,
  deposit_status TEXT NOT NULL,
  deposit_amount INTEGER NOT NULL,
  deposit_proof_url TEXT,
  deposit_paid_at DATETIME,
  remaining_status TEXT NOT NULL,
  remaining_amount INTEGER NOT NULL,
  remaining_proof_url TEXT,
  remaining_paid_at DATETIME,
  delivery_deadline DATETIME,
  delivered_at DATETIME,
  delivery_status TEXT NOT NULL DEFAULT 'pending',
  completed_at DATETIME,
  cancelled_at DATETIME,
  review_rating INTEGER,
  review_comment TEXT,
  settlement_status TEXT NOT NULL DEFAULT 'unpaid',
  settled_at DATETIME,
  settled_by TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE order_status_history (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  from_status TEXT,
  status TEXT NOT NULL,
  note TEXT,
  changed_by TEXT,
  actor_role TEXT NOT NULL,
  changed_at DATETIME NOT NULL
);`, `
CREATE TABLE albums (
  id TEXT PRIMARY KEY,
  order_id TEXT UNIQUE,
  photographer_id TEXT NOT NULL,
  customer_id TEXT,
  client_name TEXT,
  client_contact TEXT,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT,
  max_selection INTEGER NOT NULL,
  status TEXT NOT NULL,
  share_token TEXT UNIQUE,
  finalized_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE album_photos (
  id TEXT PRIMARY KEY,
  album_id TEXT NOT NULL REFERENCES albums(id) ON DELETE CASCADE,
  kind TEXT NOT NULL,
  url TEXT NOT NULL,
  filename TEXT NOT NULL,
  is_selected INTEGER NOT NULL DEFAULT 0,
  customer_note TEXT,
  created_at DATETIME
);`, `
CREATE TABLE complaints (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  customer_id TEXT NOT NULL,
  photographer_id TEXT,
  reason TEXT NOT NULL,
  evidence_urls TEXT,
  status TEXT NOT NULL,
  admin_response TEXT,
  refund_percent TEXT,
  photographer_percent TEXT,
  platform_percent TEXT,
  disputed_amount INTEGER NOT NULL DEFAULT 0,
  refund_amount INTEGER NOT NULL DEFAULT 0,
  photographer_amount INTEGER NOT NULL DEFAULT 0,
  platform_amount INTEGER NOT NULL DEFAULT 0,
  refund_proof_url TEXT,
  payout_proof_url TEXT,
  resolved_by TEXT,
  resolved_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE service_fees (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  percentage TEXT NOT NULL,
  description TEXT,
  is_active INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE payment_methods (
  id TEXT PRIMARY KEY,
  full_name TEXT NOT NULL,
  account_number TEXT NOT NULL,
  bank TEXT NOT NULL,
  bank_bin TEXT NOT NULL,
  branch TEXT,
  qr_code_url TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE ledger_events (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  complaint_id TEXT,
  actor_user_id TEXT,
  type TEXT NOT NULL,
  amount INTEGER NOT NULL,
  metadata BLOB,
  created_at DATETIME
);`, `
CREATE TABLE notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  event_id TEXT,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  link TEXT,
  read_at DATETIME,
  created_at DATETIME
);`, `
CREATE UNIQUE INDEX idx_notifications_user_event ON notifications (user_id, event_id) WHERE event_id IS NOT NULL;`, `
CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload BLOB NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT,
  next_attempt_at DATETIME
);`, `
CREATE TABLE outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  topic TEXT,
  payload_json BLOB NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`, `
CREATE UNIQUE INDEX idx_outbox_dlq_event_id ON outbox_dlq (event_id);`,
}

// Open returns a fresh database private to the calling test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:lensbook_%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// MustCreateUser inserts an active user with the given role.
func MustCreateUser(t *testing.T, db *gorm.DB, role enums.Role) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("lb_test_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		FullName:     "Test " + string(role),
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// MustCreatePackage inserts a service package owned by photographerID.
func MustCreatePackage(t *testing.T, db *gorm.DB, photographerID uuid.UUID, price int64) *models.ServicePackage {
	t.Helper()
	pkg := &models.ServicePackage{
		ID:             uuid.New(),
		PhotographerID: photographerID,
		Name:           "Portrait session",
		Price:          price,
		DurationHours:  2,
		IsActive:       true,
	}
	require.NoError(t, db.Create(pkg).Error)
	return pkg
}

// MustCreateOrder inserts a 2,000,000 VND order with a 600,000 deposit in
// status. mutate runs before the insert.
func MustCreateOrder(t *testing.T, db *gorm.DB, pkg *models.ServicePackage, customerID uuid.UUID, status enums.OrderStatus, mutate func(*models.Order)) *models.Order {
	t.Helper()
	photographerID := pkg.PhotographerID
	now := time.Now().UTC().Truncate(time.Second)
	start := now.Add(48 * time.Hour)
	order := &models.Order{
		ID:               uuid.New(),
		OrderCode:        "ORD-" + strings.ToUpper(uuid.NewString()[:8]),
		CustomerID:       customerID,
		PhotographerID:   &photographerID,
		ServicePackageID: pkg.ID,
		ServiceAmount:    2_000_000,
		TotalAmount:      2_000_000,
		FinalAmount:      2_000_000,
		DepositRequired:  600_000,
		BookingDate:      start,
		StartTime:        "10:00",
		BookingStart:     start,
		BookingEnd:       start.Add(4 * time.Hour),
		Status:           status,
		TransferCode:     "CK" + strings.ToUpper(uuid.NewString()[:8]),
		DepositStatus:    enums.PaymentStatusUnpaid,
		DepositAmount:    600_000,
		RemainingStatus:  enums.PaymentStatusUnpaid,
		RemainingAmount:  1_400_000,
		DeliveryStatus:   enums.DeliveryStatusPending,
		SettlementStatus: enums.SettlementStatusUnpaid,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if mutate != nil {
		mutate(order)
	}
	require.NoError(t, db.Create(order).Error)
	return order
}
