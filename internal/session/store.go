package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/showroom/internal/apiclient"
	"github.com/hitoshi/showroom/internal/model"
)

// ErrNotAuthenticated はトークンを持たないセッションで認証が必要な操作を行った場合に返される。
var ErrNotAuthenticated = errors.New("session: not authenticated")

// AuthAPI はStoreが利用する認証APIの操作。
// *apiclient.AuthService がこれを満たす。
type AuthAPI interface {
	Login(ctx context.Context, req model.LoginRequest) (*model.AuthPayload, error)
	Register(ctx context.Context, req model.RegisterRequest) (*model.AuthPayload, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*model.User, error)
	Refresh(ctx context.Context) (*model.AuthPayload, error)
}

// Store は1セッションの認証状態を保持する唯一の書き込み手。
// 状態遷移はwriteMuで直列化され、読み取りはI/Oを伴わない。
type Store struct {
	id      string
	storage Storage
	api     AuthAPI
	logger  *slog.Logger
	state   *Observable[Session]
	writeMu sync.Mutex

	inflight sync.WaitGroup
	now      func() time.Time

	LogoutTimeout time.Duration // ログアウト通知のタイムアウト（デフォルト: 5秒）
	LandingPath   string        // ログアウト後の遷移先（デフォルト: LandingPath）
}

// NewStore はStoreを生成する。状態は未認証で始まり、Restoreで永続化された状態を読み込む。
func NewStore(id string, storage Storage, api AuthAPI, logger *slog.Logger) *Store {
	return &Store{
		id:            id,
		storage:       storage,
		api:           api,
		logger:        logger,
		state:         NewObservable(Session{}),
		now:           time.Now,
		LogoutTimeout: 5 * time.Second,
		LandingPath:   LandingPath,
	}
}

// ID はセッションIDを返す。
func (s *Store) ID() string { return s.id }

// Snapshot は現在の状態を返す。
func (s *Store) Snapshot() Session { return s.state.Get() }

// Token は現在のトークンを返す。未認証の場合は空文字。
func (s *Store) Token() string { return s.state.Get().Token }

// CurrentUser は現在のユーザーを返す。未認証の場合はnil。
func (s *Store) CurrentUser() *model.User { return s.state.Get().User }

// IsAuthenticated はトークンを持っているかどうかを返す。
func (s *Store) IsAuthenticated() bool { return s.state.Get().IsAuthenticated() }

// IsAdmin は管理者としてログインしているかどうかを返す。
func (s *Store) IsAdmin() bool { return s.state.Get().IsAdmin() }

// Subscribe は状態の変化を受け取る関数を登録する。
// 通知は状態遷移の中で同期的に呼ばれるため、購読者からLoginやLogoutなどの書き込み操作を呼んではならない。
func (s *Store) Subscribe(fn func(Session)) (unsubscribe func()) {
	return s.state.Subscribe(fn)
}

// Wait は実行中のログアウト通知が終わるまで待つ。
func (s *Store) Wait() {
	s.inflight.Wait()
}

// Restore は永続化されたトークンとユーザーを読み込む。
// 両方が存在し、ユーザーが解釈でき、トークンが期限切れでない場合だけ状態を復元する。
// それ以外はすべて未認証として扱い、永続化された値も消去する。エラーは返さない。
func (s *Store) Restore(ctx context.Context) Session {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	token, tokenErr := s.storage.Get(ctx, KeyToken)
	rawUser, userErr := s.storage.Get(ctx, KeyUser)
	if errors.Is(tokenErr, ErrNotFound) && errors.Is(userErr, ErrNotFound) {
		// 何も永続化されていない新しいセッション
		s.state.Set(Session{})
		return Session{}
	}
	if tokenErr != nil || userErr != nil {
		for _, err := range []error{tokenErr, userErr} {
			if err != nil && !errors.Is(err, ErrNotFound) {
				s.logger.Warn("failed to read persisted session",
					slog.String("session_id", s.id),
					slog.String("error", err.Error()),
				)
			}
		}
		return s.clearLocked(ctx)
	}

	var user *model.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil || user == nil || token == "" {
		s.logger.Info("discarding corrupt persisted session",
			slog.String("session_id", s.id),
		)
		return s.clearLocked(ctx)
	}
	if tokenExpired(token, s.now()) {
		s.logger.Info("discarding expired persisted session",
			slog.String("session_id", s.id),
		)
		return s.clearLocked(ctx)
	}

	sess := Session{Token: token, User: user}
	s.state.Set(sess)
	return sess
}

// Login は認証APIでログインし、成功した場合はトークンとユーザーを永続化して状態に反映する。
// 失敗した場合は状態を変更せず、エラーを返す。
func (s *Store) Login(ctx context.Context, req model.LoginRequest) (Session, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	payload, err := s.api.Login(ctx, req)
	if err != nil {
		return s.state.Get(), err
	}
	return s.installLocked(ctx, payload)
}

// Register はユーザーを登録し、Loginと同様に状態へ反映する。
func (s *Store) Register(ctx context.Context, req model.RegisterRequest) (Session, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	payload, err := s.api.Register(ctx, req)
	if err != nil {
		return s.state.Get(), err
	}
	return s.installLocked(ctx, payload)
}

// Logout はサーバーへのログアウト通知を別ゴルーチンで送り、結果を待たずにローカルの状態を消去する。
// 通知の成否は状態遷移に影響しない。戻り値はログアウト後に遷移する画面のパス。
func (s *Store) Logout(ctx context.Context) string {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if token := s.state.Get().Token; token != "" {
		s.notifyLogout(ctx, token)
	}
	s.clearLocked(ctx)
	return s.LandingPath
}

func (s *Store) notifyLogout(ctx context.Context, token string) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.LogoutTimeout)
		defer cancel()

		if err := s.api.Logout(apiclient.WithToken(nctx, token)); err != nil {
			s.logger.Warn("logout notification failed",
				slog.String("session_id", s.id),
				slog.String("error", err.Error()),
			)
			return
		}
		s.logger.Debug("logout notification sent", slog.String("session_id", s.id))
	}()
}

// RefreshUser はサーバーから現在のユーザーを取得し、キャッシュを丸ごと置き換える。
// 401が返された場合はトークンが無効になったとみなしてセッションを消去する。
func (s *Store) RefreshUser(ctx context.Context) (Session, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current := s.state.Get()
	if !current.IsAuthenticated() {
		return current, ErrNotAuthenticated
	}

	user, err := s.api.Me(apiclient.WithToken(ctx, current.Token))
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			return s.clearLocked(ctx), err
		}
		return current, err
	}

	rawUser, err := json.Marshal(user)
	if err != nil {
		return current, fmt.Errorf("ユーザーのエンコードに失敗しました: %w", err)
	}
	if err := s.storage.Set(ctx, KeyUser, string(rawUser)); err != nil {
		return current, err
	}

	sess := Session{Token: current.Token, User: user}
	s.state.Set(sess)
	return sess, nil
}

// RefreshToken はアクセストークンを更新する。
// レスポンスにユーザーが含まれていればユーザーも置き換える。
func (s *Store) RefreshToken(ctx context.Context) (Session, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current := s.state.Get()
	if !current.IsAuthenticated() {
		return current, ErrNotAuthenticated
	}

	payload, err := s.api.Refresh(apiclient.WithToken(ctx, current.Token))
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			return s.clearLocked(ctx), err
		}
		return current, err
	}
	if payload != nil && payload.User == nil {
		payload.User = current.User
	}
	return s.installLocked(ctx, payload)
}

// installLocked は認証レスポンスを永続化してから状態に反映する。
// 永続化に失敗した場合は書きかけの値を消して状態を変更しない。
func (s *Store) installLocked(ctx context.Context, payload *model.AuthPayload) (Session, error) {
	current := s.state.Get()
	if payload == nil || payload.AccessToken == "" || payload.User == nil {
		return current, errors.New("認証レスポンスにトークンまたはユーザーが含まれていません")
	}

	rawUser, err := json.Marshal(payload.User)
	if err != nil {
		return current, fmt.Errorf("ユーザーのエンコードに失敗しました: %w", err)
	}
	if err := s.storage.Set(ctx, KeyToken, payload.AccessToken); err != nil {
		return current, err
	}
	if err := s.storage.Set(ctx, KeyUser, string(rawUser)); err != nil {
		_ = s.storage.Delete(ctx, KeyToken)
		return current, err
	}

	sess := Session{Token: payload.AccessToken, User: payload.User}
	s.state.Set(sess)
	return sess, nil
}

// clearLocked は永続化された値とメモリ上の状態を消去する。
// 永続化層の失敗はログに残すだけで、メモリ上の状態は必ず消去する。
func (s *Store) clearLocked(ctx context.Context) Session {
	if err := s.storage.Delete(ctx, KeyToken, KeyUser); err != nil {
		s.logger.Warn("failed to clear persisted session",
			slog.String("session_id", s.id),
			slog.String("error", err.Error()),
		)
	}
	s.state.Set(Session{})
	return Session{}
}
