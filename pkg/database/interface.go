package database

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/skrivtilmatias-del/ciderflow-hq/pkg/models"
)

// ErrNotFound 目标行不存在。各后端用 %w 包装返回，
// 调用方通过 errors.Is 区分"行缺失"与真正的存储故障。
var ErrNotFound = errors.New("not found")

// DatabaseInterface 定义数据库访问接口
type DatabaseInterface interface {
	// 用户管理
	CreateUser(user *models.User) error
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	UpdateUser(user *models.User) error

	// Organizations & Memberships
	// CreateOrganization inserts the organization and the creator's owner
	// membership together (one transaction where the backend supports it).
	CreateOrganization(org *models.Organization) error
	GetOrganization(orgID string) (*models.Organization, error)
	UpdateOrganization(org *models.Organization) error
	// DeleteOrganization removes the organization and cascades to its
	// batches and all batch sub-records.
	DeleteOrganization(orgID string) error
	ListUserOrganizations(userID string) ([]models.Organization, error)
	AddOrganizationMember(m *models.OrganizationMembership) error
	ListOrganizationMembers(orgID string) ([]models.OrganizationMembership, error)
	// GetMembership returns (nil, nil) when no membership row exists for
	// the pair — absence is a normal result, not an error.
	GetMembership(orgID, userID string) (*models.OrganizationMembership, error)

	// Invitations
	CreateInvitation(inv *models.OrganizationInvitation) error
	GetInvitationByToken(token string) (*models.OrganizationInvitation, error)
	ListInvitationsByEmail(email string) ([]models.OrganizationInvitation, error)
	UpdateInvitation(inv *models.OrganizationInvitation) error

	// Batches
	CreateBatch(b *models.Batch) error
	GetBatch(id string) (*models.Batch, error)
	UpdateBatch(b *models.Batch) error
	DeleteBatch(id string) error
	ListBatchesByOrganization(orgID string) ([]models.Batch, error)
	// AdvanceBatchStage conditionally moves a batch from one stage to its
	// successor. The write only succeeds if the row still belongs to the
	// claimed organization AND still sits in the expected stage; a false
	// return means the row no longer matched (concurrent advance or wrong
	// tenant), not a store failure.
	AdvanceBatchStage(batchID, orgID string, from, to models.Stage) (bool, error)

	// Fermentation logs
	CreateFermentationLog(l *models.FermentationLog) error
	GetFermentationLog(id string) (*models.FermentationLog, error)
	UpdateFermentationLog(l *models.FermentationLog) error
	DeleteFermentationLog(id string) error
	ListFermentationLogsByBatch(batchID string) ([]models.FermentationLog, error)

	// Tasting notes
	CreateTastingNote(n *models.TastingNote) error
	GetTastingNote(id string) (*models.TastingNote, error)
	UpdateTastingNote(n *models.TastingNote) error
	DeleteTastingNote(id string) error
	ListTastingNotesByBatch(batchID string) ([]models.TastingNote, error)

	// Packaging schedules
	CreatePackagingSchedule(p *models.PackagingSchedule) error
	GetPackagingSchedule(id string) (*models.PackagingSchedule, error)
	UpdatePackagingSchedule(p *models.PackagingSchedule) error
	DeletePackagingSchedule(id string) error
	ListPackagingSchedulesByBatch(batchID string) ([]models.PackagingSchedule, error)
	// CompletePackagingSchedule stamps completed_at once; a schedule that
	// is already complete keeps its original timestamp (monotonic).
	CompletePackagingSchedule(id string, at time.Time) (*models.PackagingSchedule, error)

	// 健康检查
	HealthCheck() error

	// 关闭连接
	Close() error
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	PostgresDSN string
	SupabaseURL string
	SupabaseKey string
	Debug       bool
}

// NewDatabase 根据环境与配置选择数据库实现
// 优先 PostgreSQL，其次 Supabase REST；开发环境允许内存数据库兜底
func NewDatabase(config DatabaseConfig) DatabaseInterface {
	if isServerlessEnvironment() {
		fmt.Printf("🧭 Detected serverless environment\n")

		// Serverless 优先使用 Supabase（避免 IPv6 直连问题）
		if config.SupabaseURL != "" && config.SupabaseKey != "" {
			fmt.Printf("🚀  Using Supabase REST API (serverless optimized)\n")
			return NewSupabaseDatabase(config.SupabaseURL, config.SupabaseKey)
		}

		if config.PostgresDSN != "" {
			fmt.Printf("🌐  Using PostgreSQL in serverless (may have IPv6 issues)\n")
			return NewPostgresDatabase(config.PostgresDSN)
		}

		panic("No valid database configured for serverless environment. Please set SUPABASE_URL+SUPABASE_SERVICE_KEY or POSTGRES_DSN")
	}

	if config.PostgresDSN != "" {
		fmt.Printf("🗄️  Using PostgreSQL database\n")
		return NewPostgresDatabase(config.PostgresDSN)
	}

	if config.SupabaseURL != "" && config.SupabaseKey != "" {
		fmt.Printf("🧰  Using Supabase REST API\n")
		return NewSupabaseDatabase(config.SupabaseURL, config.SupabaseKey)
	}

	// 本地开发：内存数据库（进程退出即丢失）
	fmt.Printf("🧪  Using in-memory database (development only)\n")
	return NewLocalDatabase()
}

// isServerlessEnvironment 内部检查无服务器环境
func isServerlessEnvironment() bool {
	vercelEnv := os.Getenv("VERCEL_ENV")
	vercelURL := os.Getenv("VERCEL_URL")
	awsLambda := os.Getenv("AWS_LAMBDA_FUNCTION_NAME")
	return vercelEnv != "" || vercelURL != "" || awsLambda != ""
}

// IsServerlessEnvironment 对外暴露的无服务器环境检查
func IsServerlessEnvironment() bool {
	return isServerlessEnvironment()
}
