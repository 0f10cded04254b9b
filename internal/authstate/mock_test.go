package authstate

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/stretchr/testify/mock"

	"racoonsmeal/internal/apiclient"
	"racoonsmeal/internal/model"
)

type mockSessionAPI struct {
	mock.Mock

	mu        sync.Mutex
	onExpired func()
}

func (m *mockSessionAPI) Register(ctx context.Context, in model.RegisterRequest) (json.RawMessage, error) {
	args := m.Called(ctx, in)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func (m *mockSessionAPI) Login(ctx context.Context, username string, password string) (*apiclient.LoginResult, error) {
	args := m.Called(ctx, username, password)
	result, _ := args.Get(0).(*apiclient.LoginResult)
	return result, args.Error(1)
}

func (m *mockSessionAPI) CurrentUser(ctx context.Context) (*model.User, error) {
	args := m.Called(ctx)
	user, _ := args.Get(0).(*model.User)
	return user, args.Error(1)
}

func (m *mockSessionAPI) Logout(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockSessionAPI) ProfileStatus(ctx context.Context) (apiclient.ProfileStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(apiclient.ProfileStatus), args.Error(1)
}

func (m *mockSessionAPI) OnSessionExpired(fn func()) {
	m.mu.Lock()
	m.onExpired = fn
	m.mu.Unlock()
}

func (m *mockSessionAPI) expire() {
	m.mu.Lock()
	fn := m.onExpired
	m.mu.Unlock()
	fn()
}

type recordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNavigator) Navigate(path string) {
	n.mu.Lock()
	n.paths = append(n.paths, path)
	n.mu.Unlock()
}

func (n *recordingNavigator) visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}
