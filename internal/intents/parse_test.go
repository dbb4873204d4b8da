package intents

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/storeapp/storeapp-core/internal/models"
)

func TestParse_Grammar(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		uri    string
		target models.IntentTarget
		params map[string]string
	}{
		{
			name:   "product details",
			uri:    "storeapp://product/42",
			target: models.TargetProductDetails,
			params: map[string]string{models.ParamProductID: "42"},
		},
		{
			name:   "edit product",
			uri:    "storeapp://edit-product/abc-7",
			target: models.TargetEditProduct,
			params: map[string]string{models.ParamProductID: "abc-7"},
		},
		{name: "home", uri: "storeapp://home", target: models.TargetHome},
		{name: "add product", uri: "storeapp://add-product", target: models.TargetAddProduct},
		{name: "cart", uri: "storeapp://cart", target: models.TargetCart},
		{name: "profile", uri: "storeapp://profile", target: models.TargetProfile},

		// Тотальность: всё нераспознанное сводится к home.
		{name: "unknown path", uri: "storeapp://settings/advanced", target: models.TargetHome},
		{name: "empty path", uri: "storeapp://", target: models.TargetHome},
		{name: "product without id", uri: "storeapp://product", target: models.TargetHome},
		{name: "product extra segment", uri: "storeapp://product/42/reviews", target: models.TargetHome},
		{name: "trailing slash", uri: "storeapp://cart/", target: models.TargetCart},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := Parse("storeapp", tc.uri)
			require.NoError(t, err)
			require.Equal(t, tc.target, got.Target)
			require.Equal(t, tc.params, got.Params)
			require.False(t, got.CreatedAt.IsZero())
		})
	}
}

func TestParse_QueryParams(t *testing.T) {
	t.Parallel()

	got, err := Parse("storeapp", "storeapp://product/42?ref=push&ref=mail&src=banner")
	require.NoError(t, err)
	require.Equal(t, models.TargetProductDetails, got.Target)
	// Первое значение каждого ключа.
	require.Equal(t, map[string]string{
		models.ParamProductID: "42",
		"ref":                 "push",
		"src":                 "banner",
	}, got.Params)
}

func TestParse_SchemeCaseInsensitive(t *testing.T) {
	t.Parallel()

	got, err := Parse("storeapp", "StoreApp://cart")
	require.NoError(t, err)
	require.Equal(t, models.TargetCart, got.Target)
}

func TestParse_ForeignScheme(t *testing.T) {
	t.Parallel()

	for _, uri := range []string{
		"https://example.com/product/42",
		"otherapp://home",
		"just a plain string",
		"",
	} {
		_, err := Parse("storeapp", uri)
		require.ErrorIs(t, err, ErrUnsupportedScheme, "uri=%q", uri)
	}
}
