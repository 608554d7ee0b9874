package db

import (
	"gorm.io/gorm"

	"github.com/lensbook/lensbook-backend/pkg/enums"
)

// WithoutOpenComplaint keeps orders that have no pending or negotiating
// complaint. The query must select from the orders table.
func WithoutOpenComplaint(query *gorm.DB) *gorm.DB {
	return query.Where(`NOT EXISTS (
  SELECT 1 FROM complaints c
  WHERE c.order_id = orders.id AND c.status IN ?
)`, enums.OpenComplaintStatuses)
}
