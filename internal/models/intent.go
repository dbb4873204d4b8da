package models

import "time"

// IntentTarget — закрытый набор экранов, в которые может вести диплинк.
type IntentTarget string

const (
	TargetHome           IntentTarget = "home"
	TargetAddProduct     IntentTarget = "add_product"
	TargetCart           IntentTarget = "cart"
	TargetProfile        IntentTarget = "profile"
	TargetProductDetails IntentTarget = "product_details"
	TargetEditProduct    IntentTarget = "edit_product"

	// TargetLogin — точка входа в аутентификацию; сам по себе диплинком
	// не выражается, навигационная команда для незалогиненного пользователя.
	TargetLogin IntentTarget = "login"
)

// ParamProductID — ключ параметра с идентификатором товара
// для TargetProductDetails и TargetEditProduct.
const ParamProductID = "productId"

// NavigationIntent — типизированное навигационное намерение, полученное из
// внешнего URI. Создаётся парсером роутера или подсистемой уведомлений;
// до доставки (или протухания) принадлежит исключительно intents.Router.
//
// Отложенным может быть не более одного интента: более новый молча
// перезаписывает недоставленный старый (диплинки — одиночные действия
// пользователя, второй клик означает отказ от первого).
type NavigationIntent struct {
	Target    IntentTarget      `json:"target"`
	Params    map[string]string `json:"params,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
