package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"multiplication-shooter/models"
)

// AccountDirectory maps provider identities and roster emails to User rows.
type AccountDirectory struct {
	DB  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

func NewAccountDirectory(db *gorm.DB, log *zap.Logger) *AccountDirectory {
	return &AccountDirectory{DB: db, log: log.Named("accounts"), now: time.Now}
}

// Resolve is the idempotent login upsert run on every authenticated request.
// Lookup order is external id, then email; a roster row found by email gets
// the external id attached instead of a duplicate being created, provided
// the provider verified the email.
func (d *AccountDirectory) Resolve(ctx context.Context, id *Identity) (*models.User, error) {
	if id == nil || id.ExternalID == "" || id.Email == "" {
		return nil, ErrUnauthenticated
	}

	var resolved *models.User
	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := d.resolveTx(tx, id)
		if err != nil {
			return err
		}
		resolved = user
		return nil
	})
	if err == nil {
		return resolved, nil
	}
	if errors.Is(err, ErrForbidden) {
		return nil, err
	}

	// Two first requests for the same identity can race on the unique
	// indexes; the loser re-reads the winner's row.
	var user models.User
	if lookupErr := d.DB.WithContext(ctx).Where("external_id = ?", id.ExternalID).First(&user).Error; lookupErr == nil {
		return &user, nil
	}
	return nil, fmt.Errorf("resolve account %s: %w", id.Email, err)
}

func (d *AccountDirectory) resolveTx(tx *gorm.DB, id *Identity) (*models.User, error) {
	var user models.User
	err := tx.Where("external_id = ?", id.ExternalID).First(&user).Error
	switch {
	case err == nil:
		if applyProfile(&user, id) {
			if err := tx.Save(&user).Error; err != nil {
				return nil, err
			}
		}
		return &user, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	err = tx.Where("email = ?", id.Email).First(&user).Error
	switch {
	case err == nil:
		if user.ExternalID != nil && *user.ExternalID != id.ExternalID {
			return nil, fmt.Errorf("email %s is linked to another account: %w", id.Email, ErrForbidden)
		}
		// Only a provider-verified email may claim a pre-provisioned row.
		if !id.EmailVerified {
			return nil, fmt.Errorf("email %s is not verified: %w", id.Email, ErrForbidden)
		}
		externalID := id.ExternalID
		user.ExternalID = &externalID
		applyProfile(&user, id)
		if err := tx.Save(&user).Error; err != nil {
			return nil, err
		}
		d.log.Info("linked roster user to identity", zap.String("user_id", user.ID), zap.String("email", user.Email))
		return &user, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	externalID := id.ExternalID
	user = models.User{
		ID:         uuid.NewString(),
		ExternalID: &externalID,
		Email:      id.Email,
		Name:       models.StringPtr(id.Name),
		Lastname:   id.Lastname,
		AvatarURL:  id.AvatarURL,
		Role:       models.RoleStudent,
	}
	if err := tx.Create(&user).Error; err != nil {
		return nil, err
	}
	d.log.Info("created user on first login", zap.String("user_id", user.ID), zap.String("email", user.Email))
	return &user, nil
}

// applyProfile refreshes the avatar and fills name fields that are still
// empty. It reports whether anything changed.
func applyProfile(u *models.User, id *Identity) bool {
	changed := false
	if id.AvatarURL != nil && (u.AvatarURL == nil || *u.AvatarURL != *id.AvatarURL) {
		u.AvatarURL = id.AvatarURL
		changed = true
	}
	if (u.Name == nil || *u.Name == "") && id.Name != "" {
		u.Name = models.StringPtr(id.Name)
		changed = true
	}
	if (u.Lastname == nil || *u.Lastname == "") && id.Lastname != nil {
		u.Lastname = id.Lastname
		changed = true
	}
	return changed
}

// RecordLogin writes the sign-in audit row.
func (d *AccountDirectory) RecordLogin(ctx context.Context, user *models.User, ip, userAgent string) error {
	login := models.UserLogin{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		LoggedInAt: d.now().UTC(),
		IPAddress:  ip,
		UserAgent:  userAgent,
	}
	if err := d.DB.WithContext(ctx).Create(&login).Error; err != nil {
		return fmt.Errorf("record login for %s: %w", user.ID, err)
	}
	return nil
}
