// Package logs persists application log records. The table is write-only
// from the server's point of view.
package logs

import (
	"context"

	"github.com/dmitrijs2005/gophtasks/internal/logging"
)

type Repository interface {
	Append(ctx context.Context, e logging.Entry) error
}
