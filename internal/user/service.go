// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/shareit/internal/lookup"
	"github.com/hitoshi/shareit/internal/model"
	"github.com/hitoshi/shareit/internal/repository"
)

// Service はユーザー管理のサービス層。
// メールアドレスの一意性はサービス層で事前に検査し、最終的にはDBの一意制約で保証する。
type Service struct {
	userRepo repository.UserRepository
	lookup   lookup.Lookup
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{
		userRepo: userRepo,
		lookup:   lookup.Lookup{Users: userRepo},
	}
}

// Create はユーザーを登録する。
func (s *Service) Create(ctx context.Context, in model.NewUser) (*model.User, error) {
	if err := s.ensureEmailFree(ctx, in.Email, 0); err != nil {
		return nil, err
	}

	u := &model.User{Name: in.Name, Email: in.Email}
	if err := s.userRepo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewDuplicateEmailError(in.Email)
		}
		return nil, fmt.Errorf("ユーザーの登録に失敗しました: %w", err)
	}
	return u, nil
}

// Update はユーザーを部分更新する。
// 自分が現在使用しているメールアドレスの再指定は許可する。
func (s *Service) Update(ctx context.Context, userID int64, patch model.UserPatch) (*model.User, error) {
	u, err := s.lookup.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	if patch.Email != nil && *patch.Email != u.Email {
		if err := s.ensureEmailFree(ctx, *patch.Email, userID); err != nil {
			return nil, err
		}
	}

	patch.Apply(u)
	if err := s.userRepo.Update(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewDuplicateEmailError(u.Email)
		}
		return nil, fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}
	return u, nil
}

// Get はユーザーを返す。
func (s *Service) Get(ctx context.Context, userID int64) (*model.User, error) {
	return s.lookup.User(ctx, userID)
}

// List は全ユーザーをID昇順で返す。
func (s *Service) List(ctx context.Context) ([]model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

// Delete はユーザーを削除する。
// 所有する物品、予約、リクエスト、コメントはCASCADE削除される。
func (s *Service) Delete(ctx context.Context, userID int64) error {
	if _, err := s.lookup.User(ctx, userID); err != nil {
		return err
	}

	slog.Info("ユーザー削除を開始します",
		slog.Int64("user_id", userID),
	)

	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("ユーザー削除が完了しました",
		slog.Int64("user_id", userID),
	)
	return nil
}

// ensureEmailFree はメールアドレスがexceptID以外のユーザーに使われていないことを検査する。
func (s *Service) ensureEmailFree(ctx context.Context, email string, exceptID int64) error {
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("メールアドレスの確認に失敗しました: %w", err)
	}
	if existing != nil && existing.ID != exceptID {
		return model.NewDuplicateEmailError(email)
	}
	return nil
}
