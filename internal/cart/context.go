package cart

import (
	"context"

	"github.com/vladislavdragonenkov/storefront-cart/internal/domain"
)

type storeKey struct{}

// WithStore возвращает контекст, в котором доступна корзина store.
func WithStore(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, storeKey{}, store)
}

// FromContext возвращает корзину или domain.ErrNoCartScope, если контекст
// не получен через WithStore.
func FromContext(ctx context.Context) (*Store, error) {
	if ctx == nil {
		return nil, domain.ErrNoCartScope
	}
	store, ok := ctx.Value(storeKey{}).(*Store)
	if !ok || store == nil {
		return nil, domain.ErrNoCartScope
	}
	return store, nil
}

// MustFromContext паникует вне области корзины.
func MustFromContext(ctx context.Context) *Store {
	store, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return store
}
