package directory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// SlackDirectory maps every hero to the Slack user group whose handle is
// the hero name. Members are resolved by e-mail address.
type SlackDirectory struct {
	api    *slack.Client
	logger *zap.Logger

	mu     sync.Mutex
	groups map[string]slack.UserGroup // by handle
}

func NewSlack(token string, logger *zap.Logger, options ...slack.Option) *SlackDirectory {
	return &SlackDirectory{
		api:    slack.New(token, options...),
		logger: logger,
		groups: make(map[string]slack.UserGroup),
	}
}

func (s *SlackDirectory) SetHolder(ctx context.Context, hero, member string) error {
	group, err := s.userGroup(ctx, hero)
	if err != nil {
		return err
	}
	disabled := group.DateDelete != 0

	// Slack refuses empty user groups, so an unstaffed hero disables its group.
	if member == "" {
		if disabled {
			return nil
		}
		if _, err := s.api.DisableUserGroupContext(ctx, group.ID); err != nil {
			return fmt.Errorf("disable user group %s: %w", hero, err)
		}
		group.DateDelete = slack.JSONTime(time.Now().Unix())
		s.remember(hero, group)
		return nil
	}

	user, err := s.api.GetUserByEmailContext(ctx, member)
	if err != nil {
		return fmt.Errorf("lookup slack user %s: %w", member, err)
	}
	if disabled {
		if _, err := s.api.EnableUserGroupContext(ctx, group.ID); err != nil {
			return fmt.Errorf("enable user group %s: %w", hero, err)
		}
		group.DateDelete = 0
		s.remember(hero, group)
	}
	if _, err := s.api.UpdateUserGroupMembersContext(ctx, group.ID, user.ID); err != nil {
		return fmt.Errorf("update user group %s: %w", hero, err)
	}
	s.logger.Debug("updated slack user group",
		zap.String("hero", hero),
		zap.String("usergroup", group.ID),
		zap.String("member", member))
	return nil
}

func (s *SlackDirectory) userGroup(ctx context.Context, handle string) (slack.UserGroup, error) {
	s.mu.Lock()
	group, ok := s.groups[handle]
	s.mu.Unlock()
	if ok {
		return group, nil
	}

	groups, err := s.api.GetUserGroupsContext(ctx, slack.GetUserGroupsOptionIncludeDisabled(true))
	if err != nil {
		return slack.UserGroup{}, fmt.Errorf("list user groups: %w", err)
	}
	for _, g := range groups {
		s.remember(g.Handle, g)
	}

	s.mu.Lock()
	group, ok = s.groups[handle]
	s.mu.Unlock()
	if ok {
		return group, nil
	}

	group, err = s.api.CreateUserGroupContext(ctx, slack.UserGroup{Name: handle, Handle: handle})
	if err != nil {
		return slack.UserGroup{}, fmt.Errorf("create user group %s: %w", handle, err)
	}
	s.logger.Info("created slack user group", zap.String("handle", handle), zap.String("usergroup", group.ID))
	s.remember(handle, group)
	return group, nil
}

func (s *SlackDirectory) remember(handle string, group slack.UserGroup) {
	if handle == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[handle] = group
}
