package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Afefmejri25/crm/models"
	"github.com/Afefmejri25/crm/repository"
)

// SeedRepository is the persistence the seeder writes through.
type SeedRepository interface {
	repository.UserRepository
	repository.ProfileRepository
	repository.ClientRepository
}

// DatabaseSeeder handles database seeding operations
type DatabaseSeeder struct {
	repo SeedRepository
}

type seedAccount struct {
	Email    string
	Password string
	FullName string
	Role     models.Role
}

// Demo accounts shown on the sign-in screen.
var defaultAccounts = []seedAccount{
	{Email: "admin@crm.com", Password: "admin123", FullName: "Admin User", Role: models.RoleAdmin},
	{Email: "agent@crm.com", Password: "agent123", FullName: "Agent User", Role: models.RoleAgent},
}

// NewDatabaseSeeder creates a new database seeder
func NewDatabaseSeeder(repo SeedRepository) *DatabaseSeeder {
	return &DatabaseSeeder{repo: repo}
}

// SeedDatabase seeds the database with initial data (idempotent)
func (s *DatabaseSeeder) SeedDatabase(ctx context.Context) error {
	for _, account := range defaultAccounts {
		if err := s.seedAccount(ctx, account); err != nil {
			return err
		}
	}

	agent, err := s.repo.GetUserByEmail(ctx, "agent@crm.com")
	if err != nil {
		return fmt.Errorf("failed to get agent user: %w", err)
	}
	if agent == nil {
		return fmt.Errorf("agent user not found after seeding")
	}
	if err := s.seedClients(ctx, agent.ID); err != nil {
		slog.Error("Failed to seed clients", "error", err)
	}

	slog.Info("Database seeding completed successfully")
	return nil
}

// seedAccount creates the user if missing and makes sure its profile carries the role.
func (s *DatabaseSeeder) seedAccount(ctx context.Context, account seedAccount) error {
	user, err := s.repo.GetUserByEmail(ctx, account.Email)
	if err != nil {
		return fmt.Errorf("error checking user %s: %w", account.Email, err)
	}

	if user == nil {
		hashed, err := HashPassword(account.Password)
		if err != nil {
			return err
		}
		user = &models.User{Email: account.Email, Password: hashed}
		if err := s.repo.CreateUser(ctx, user); err != nil {
			return fmt.Errorf("failed to create user %s: %w", account.Email, err)
		}
		slog.Info("Created user", "email", account.Email)
	} else {
		slog.Info("User already exists, skipping", "email", account.Email)
	}

	profile, err := s.repo.GetProfile(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("error checking profile %s: %w", account.Email, err)
	}
	if profile != nil && profile.Role == account.Role {
		return nil
	}

	if err := s.repo.UpsertProfile(ctx, &models.Profile{ID: user.ID, FullName: account.FullName, Role: account.Role}); err != nil {
		return fmt.Errorf("failed to seed profile %s: %w", account.Email, err)
	}
	slog.Info("Seeded profile", "email", account.Email, "role", account.Role)
	return nil
}

// seedClients gives the demo agent a few clients when it has none.
func (s *DatabaseSeeder) seedClients(ctx context.Context, agentID string) error {
	existing, err := s.repo.ListClients(ctx, repository.ClientFilter{CreatedBy: agentID})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	region := func(v string) *string { return &v }
	clients := []models.Client{
		{CompanyName: "Boulangerie Martin", ContactName: "Claire Martin", Region: region("Île-de-France")},
		{CompanyName: "Schmidt Logistik GmbH", ContactName: "Jonas Schmidt", Region: region("Bayern")},
		{CompanyName: "Atelier Dubois", ContactName: "Luc Dubois", Region: region("Occitanie")},
	}
	for i := range clients {
		clients[i].CreatedBy = agentID
		if err := s.repo.CreateClient(ctx, &clients[i]); err != nil {
			return fmt.Errorf("failed to create client %s: %w", clients[i].CompanyName, err)
		}
	}
	slog.Info("Seeded demo clients", "count", len(clients), "user_id", agentID)
	return nil
}
