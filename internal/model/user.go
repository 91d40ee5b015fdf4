package model

// User はサービス利用ユーザーを表す。
// Emailは全ユーザーで一意（大文字小文字を区別する完全一致）。
type User struct {
	ID    int64
	Name  string
	Email string
}

// NewUser はユーザー登録の入力。
type NewUser struct {
	Name  string
	Email string
}

// UserPatch はユーザーの部分更新を表す。
// nilフィールドは変更しない。値を明示的にクリアする手段はない。
type UserPatch struct {
	Name  *string
	Email *string
}

// Apply はnilでないフィールドのみをユーザーに上書きする。
func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
}
