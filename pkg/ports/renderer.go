package ports

import (
	"context"

	"github.com/aretw0/guiche/pkg/domain"
)

// ReplyRenderer turns a structured reply into user-facing prose.
// Rendering is best-effort: a failure never changes the reply itself.
type ReplyRenderer interface {
	Render(ctx context.Context, reply domain.Reply) (string, error)
}
