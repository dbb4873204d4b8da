package models

// TokenPair — пара токенов, которой клиент владеет после аутентификации.
//
// Описание:
//   - AccessToken — короткоживущий токен, прикладывается к запросам к API;
//   - RefreshToken — долгоживущий секрет, используется только для выпуска
//     новой пары через /auth/refresh-token.
//
// Инвариант: поля записываются и очищаются в хранилище только вместе —
// половинчатая пара на диске недопустима (см. пакет creds).
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Complete сообщает, что обе части пары присутствуют.
func (p TokenPair) Complete() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}
