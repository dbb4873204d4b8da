package models

// SessionPhase — фаза сессии. Ровно одна фаза активна в любой момент,
// переходы выполняются только операциями session.Manager.
type SessionPhase string

const (
	// PhaseUnauthenticated — пользователь не вошёл в систему.
	PhaseUnauthenticated SessionPhase = "unauthenticated"
	// PhasePendingVerification — регистрация прошла, ожидается код из письма.
	PhasePendingVerification SessionPhase = "pending_verification"
	// PhaseAuthenticated — единственная фаза, из которой защищённые
	// вызовы API выполняются без заведомого отказа.
	PhaseAuthenticated SessionPhase = "authenticated"
)

// SessionState — состояние сессии вместе с данными активной фазы.
//
//   - Unauthenticated: Email и User пусты;
//   - PendingVerification: заполнен Email;
//   - Authenticated: заполнен Email, User может быть nil сразу после
//     восстановления с диска (профиль дотягивается отдельным запросом).
type SessionState struct {
	Phase SessionPhase
	Email string
	User  *User
}

// Unauthenticated — состояние "не вошёл".
func Unauthenticated() SessionState {
	return SessionState{Phase: PhaseUnauthenticated}
}

// PendingVerification — состояние "ожидает подтверждения e-mail".
func PendingVerification(email string) SessionState {
	return SessionState{Phase: PhasePendingVerification, Email: email}
}

// Authenticated — состояние "вошёл".
func Authenticated(user *User, email string) SessionState {
	return SessionState{Phase: PhaseAuthenticated, Email: email, User: user}
}
