package repository

import (
	"context"
	"database/sql"
	"fmt"

	"saarthi-alert/internal/models"

	"go.uber.org/zap"
)

// ContactsCapability emergency_contacts 表的部署能力
// 旧部署可能没有该表或缺 is_active 列，启动时探测一次，
// 替代逐请求的 try/catch 回落
type ContactsCapability struct {
	HasTable          bool
	HasIsActiveColumn bool
}

// GuardiansRepository 监护人/紧急联系人仓库
// 覆盖 parent_child_links、emergency_contacts 与 users 的电话解析
type GuardiansRepository struct {
	db         *sql.DB
	capability ContactsCapability
	logger     *zap.Logger
}

// NewGuardiansRepository 创建监护人仓库
func NewGuardiansRepository(db *sql.DB, capability ContactsCapability, logger *zap.Logger) *GuardiansRepository {
	return &GuardiansRepository{
		db:         db,
		capability: capability,
		logger:     logger,
	}
}

// DetectContactsCapability 探测 emergency_contacts 表结构（启动时调用一次）
func DetectContactsCapability(ctx context.Context, db *sql.DB) (ContactsCapability, error) {
	var cap ContactsCapability

	query := `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_name = 'emergency_contacts'
		)
	`
	if err := db.QueryRowContext(ctx, query).Scan(&cap.HasTable); err != nil {
		return cap, fmt.Errorf("failed to detect emergency_contacts table: %w", err)
	}

	if !cap.HasTable {
		return cap, nil
	}

	query = `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_name = 'emergency_contacts'
			  AND column_name = 'is_active'
		)
	`
	if err := db.QueryRowContext(ctx, query).Scan(&cap.HasIsActiveColumn); err != nil {
		return cap, fmt.Errorf("failed to detect is_active column: %w", err)
	}

	return cap, nil
}

// GuardianPhones 解析用户的监护人电话（ACTIVE 家长链接）
func (r *GuardiansRepository) GuardianPhones(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	query := `
		SELECT u.phone FROM users u
		INNER JOIN parent_child_links pcl ON u.user_id = pcl.parent_id
		WHERE pcl.child_id = $1
		  AND pcl.status = $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, models.LinkActive)
	if err != nil {
		return nil, fmt.Errorf("failed to query guardian phones: %w", err)
	}
	defer rows.Close()

	var phones []string
	for rows.Next() {
		var phone string
		if err := rows.Scan(&phone); err != nil {
			return nil, fmt.Errorf("failed to scan guardian phone: %w", err)
		}
		if phone != "" {
			phones = append(phones, phone)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate guardian phones: %w", err)
	}

	return phones, nil
}

// EmergencyContactPhones 解析用户的紧急联系人电话
// 部署缺表时返回空列表而不是错误，报警链路不因此中断
func (r *GuardiansRepository) EmergencyContactPhones(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	if !r.capability.HasTable {
		return nil, nil
	}

	var query string
	if r.capability.HasIsActiveColumn {
		query = `
			SELECT phone FROM emergency_contacts
			WHERE user_id = $1 AND is_active = TRUE
		`
	} else {
		query = `
			SELECT phone FROM emergency_contacts
			WHERE user_id = $1
		`
	}

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query emergency contacts: %w", err)
	}
	defer rows.Close()

	var phones []string
	for rows.Next() {
		var phone string
		if err := rows.Scan(&phone); err != nil {
			return nil, fmt.Errorf("failed to scan contact phone: %w", err)
		}
		if phone != "" {
			phones = append(phones, phone)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contact phones: %w", err)
	}

	return phones, nil
}

// AlertRecipients 解析报警接收人：监护人 ∪ 紧急联系人（去重）
func (r *GuardiansRepository) AlertRecipients(ctx context.Context, userID string) ([]string, error) {
	guardians, err := r.GuardianPhones(ctx, userID)
	if err != nil {
		return nil, err
	}

	contacts, err := r.EmergencyContactPhones(ctx, userID)
	if err != nil {
		// 紧急联系人解析失败只降级，不阻断监护人通知
		r.logger.Warn("Failed to resolve emergency contacts, continuing with guardians only",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		contacts = nil
	}

	seen := make(map[string]struct{}, len(guardians)+len(contacts))
	var recipients []string
	for _, phone := range append(guardians, contacts...) {
		if _, ok := seen[phone]; ok {
			continue
		}
		seen[phone] = struct{}{}
		recipients = append(recipients, phone)
	}

	return recipients, nil
}
