// intents — разбор внешних навигационных URI (диплинков), гейтинг по
// состоянию сессии, персист недоставленного интента и его replay после
// входа. Единственный писатель слота pendingDeepLink — Router.
package intents

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/storeapp/storeapp-core/internal/models"
)

// ErrUnsupportedScheme — URI с чужой схемой; дропается с логом,
// пользователю не показывается.
var ErrUnsupportedScheme = errors.New("unsupported uri scheme")

// Parse разбирает URI в типизированный интент. Тотальна по путям:
// для любой строки с поддерживаемой схемой результат определён,
// нераспознанный или пустой путь — TargetHome.
//
// Грамматика пути:
//
//	product/<id>      -> product_details
//	edit-product/<id> -> edit_product
//	home              -> home
//	add-product       -> add_product
//	cart              -> cart
//	profile           -> profile
//	прочее / пусто    -> home
//
// Query-параметры URI переносятся в Params (первое значение каждого ключа).
func Parse(scheme, raw string) (models.NavigationIntent, error) {
	const op = "intents.Parse"

	u, err := url.Parse(raw)
	if err != nil {
		return models.NavigationIntent{}, fmt.Errorf("%s: %w", op, ErrUnsupportedScheme)
	}

	if !strings.EqualFold(u.Scheme, scheme) {
		return models.NavigationIntent{}, fmt.Errorf("%s: %w: %q", op, ErrUnsupportedScheme, u.Scheme)
	}

	params := map[string]string{}
	for k, vs := range u.Query() {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}

	target := models.TargetHome

	// Для scheme://host/path хост — первый сегмент пути.
	segs := splitPath(u.Host + u.Path)
	switch {
	case len(segs) == 2 && segs[0] == "product" && segs[1] != "":
		target = models.TargetProductDetails
		params[models.ParamProductID] = segs[1]
	case len(segs) == 2 && segs[0] == "edit-product" && segs[1] != "":
		target = models.TargetEditProduct
		params[models.ParamProductID] = segs[1]
	case len(segs) == 1 && segs[0] == "home":
		target = models.TargetHome
	case len(segs) == 1 && segs[0] == "add-product":
		target = models.TargetAddProduct
	case len(segs) == 1 && segs[0] == "cart":
		target = models.TargetCart
	case len(segs) == 1 && segs[0] == "profile":
		target = models.TargetProfile
	}

	if len(params) == 0 {
		params = nil
	}

	return models.NavigationIntent{
		Target:    target,
		Params:    params,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// splitPath режет путь на непустые сегменты.
func splitPath(p string) []string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}

	return segs
}
