package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/tutorbase/internal/actorcontext"
	auditdomain "github.com/smallbiznis/tutorbase/internal/audit/domain"
	"github.com/smallbiznis/tutorbase/internal/audit/repository"
	"github.com/smallbiznis/tutorbase/internal/auditcontext"
	"github.com/smallbiznis/tutorbase/internal/clock"
	"github.com/smallbiznis/tutorbase/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func setupAuditDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&auditdomain.AuditLog{}))
	return db
}

func newTestService(t *testing.T, db *gorm.DB, repo auditdomain.Repository, log *zap.Logger, clk clock.Clock) auditdomain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewService(Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: repo})
}

func staffContext() context.Context {
	ctx := actorcontext.WithActor(context.Background(), actorcontext.Actor{ID: "u1", Role: actorcontext.RoleStaff})
	ctx = auditcontext.WithRequestID(ctx, "req-1")
	return auditcontext.WithIPAddress(ctx, "10.0.0.1")
}

func TestRecordStoresSnapshotsAndChanges(t *testing.T) {
	db := setupAuditDB(t)
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, repository.Provide(), zap.NewNop(), clk)

	err := svc.Record(staffContext(), auditdomain.Entry{
		Action:     auditdomain.ActionUpdate,
		EntityType: "claim",
		EntityID:   "42",
		Summary:    "Updated claim CLM-202403-0001",
		Before:     map[string]any{"status": "draft"},
		After:      map[string]any{"status": "submitted"},
	})
	require.NoError(t, err)

	var rows []auditdomain.AuditLog
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "u1", row.ActorID)
	assert.Equal(t, "staff", row.ActorRole)
	assert.Equal(t, "42", row.EntityID)
	require.NotNil(t, row.RequestID)
	assert.Equal(t, "req-1", *row.RequestID)
	assert.True(t, row.CreatedAt.Equal(clk.Now()))

	assert.Equal(t, map[string]any{"status": "draft"}, row.Details["before"])
	assert.Equal(t, map[string]any{"status": "submitted"}, row.Details["after"])
	changes, ok := row.Details["changes"].([]any)
	require.True(t, ok)
	require.Len(t, changes, 1)
	assert.Equal(t, "/status", changes[0].(map[string]any)["path"])
}

func TestRecordFallsBackToSystemActor(t *testing.T) {
	db := setupAuditDB(t)
	svc := newTestService(t, db, repository.Provide(), zap.NewNop(), clock.NewFakeClock(time.Now()))

	require.NoError(t, svc.Record(context.Background(), auditdomain.Entry{
		Action: auditdomain.ActionExpire, EntityType: "customer_policy", EntityID: "7", Summary: "expired",
	}))

	var row auditdomain.AuditLog
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, "system", row.ActorID)
	assert.Equal(t, "system", row.ActorRole)
	assert.Empty(t, row.Details)
}

func TestRecordRejectsIncompleteEntries(t *testing.T) {
	db := setupAuditDB(t)
	svc := newTestService(t, db, repository.Provide(), zap.NewNop(), clock.NewFakeClock(time.Now()))

	assert.ErrorIs(t, svc.Record(staffContext(), auditdomain.Entry{EntityType: "claim", EntityID: "1"}), auditdomain.ErrInvalidAction)
	assert.ErrorIs(t, svc.Record(staffContext(), auditdomain.Entry{Action: "create", EntityType: "claim"}), auditdomain.ErrInvalidEntity)
}

type failingRepo struct{}

func (failingRepo) Insert(context.Context, *gorm.DB, *auditdomain.AuditLog) error {
	return errors.New("disk full")
}

func (failingRepo) List(context.Context, *gorm.DB, auditdomain.ListFilter) ([]*auditdomain.AuditLog, error) {
	return nil, nil
}

func TestRecordFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	svc := newTestService(t, nil, failingRepo{}, zap.New(core), clock.NewFakeClock(time.Now()))

	err := svc.Record(staffContext(), auditdomain.Entry{Action: "create", EntityType: "claim", EntityID: "1"})
	require.Error(t, err)

	entries := logs.FilterMessage("failed to write audit log").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "claim", entries[0].ContextMap()["entity_type"])
}

func TestListPagesNewestFirst(t *testing.T) {
	db := setupAuditDB(t)
	clk := clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	svc := newTestService(t, db, repository.Provide(), zap.NewNop(), clk)

	for i := 1; i <= 5; i++ {
		clk.Advance(time.Minute)
		require.NoError(t, svc.Record(staffContext(), auditdomain.Entry{
			Action: "create", EntityType: "insurer", EntityID: fmt.Sprint(i), Summary: "created",
		}))
	}
	require.NoError(t, svc.Record(staffContext(), auditdomain.Entry{
		Action: "create", EntityType: "policy", EntityID: "99", Summary: "created",
	}))

	first, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageSize: 2},
		EntityType: "insurer",
	})
	require.NoError(t, err)
	require.Len(t, first.AuditLogs, 2)
	assert.Equal(t, "5", first.AuditLogs[0].EntityID)
	assert.Equal(t, "4", first.AuditLogs[1].EntityID)
	require.True(t, first.HasMore)

	second, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken},
		EntityType: "insurer",
	})
	require.NoError(t, err)
	require.Len(t, second.AuditLogs, 2)
	assert.Equal(t, "3", second.AuditLogs[0].EntityID)

	_, err = svc.List(context.Background(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageToken: "not-a-token"},
	})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
}
