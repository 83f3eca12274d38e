package entity

// UserState состояние пользователя в диалоге
type UserState string

const (
	StateMainMenu UserState = "main_menu" // В главном меню
	StateScanning UserState = "scanning"  // Идёт сессия сканирования
)

// User представляет пользователя бота
type User struct {
	ID        int64     // Telegram User ID
	ChatID    int64     // Telegram Chat ID
	State     UserState // Текущее состояние пользователя
	SessionID string    // Активная сессия сканирования (пусто в главном меню)
}

// NewUser создаёт нового пользователя с начальным состоянием
func NewUser(userID, chatID int64) *User {
	return &User{
		ID:     userID,
		ChatID: chatID,
		State:  StateMainMenu,
	}
}

// AttachSession привязывает сессию сканирования к пользователю
func (u *User) AttachSession(sessionID string) {
	u.SessionID = sessionID
	u.State = StateScanning
}

// DetachSession возвращает пользователя в главное меню
func (u *User) DetachSession() {
	u.SessionID = ""
	u.State = StateMainMenu
}
