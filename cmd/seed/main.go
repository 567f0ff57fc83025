package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"tablebook/internal/availability"
	"tablebook/internal/shared/config"
	"tablebook/internal/shared/database"
	"tablebook/internal/staff"
	"tablebook/internal/submission"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

type Seeder struct {
	db         *database.DB
	restaurant *config.Restaurant
	now        time.Time
}

func main() {
	fmt.Println("🌱 Starting tablebook database seeder...")

	_ = godotenv.Load()
	cfg := config.Load()

	restaurant, err := config.LoadRestaurant(cfg.RestaurantConfigPath)
	if err != nil {
		log.Fatalf("Failed to load restaurant config: %v", err)
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db, restaurant: restaurant, now: time.Now().In(restaurant.Location())}

	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}

	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedStaff(); err != nil {
		log.Fatalf("Failed to seed staff: %v", err)
	}
	if err := seeder.SeedFormResponses(); err != nil {
		log.Fatalf("Failed to seed form responses: %v", err)
	}

	fmt.Println("\n🎉 Seeding completed!")
}

// CleanDatabase truncates the seeded tables
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		availability.FormResponse{}.TableName(),
		staff.Staff{}.TableName(),
	}

	tx := s.db.PostgreSQL.Begin()
	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}
	return tx.Commit().Error
}

// SeedStaff creates one admin and one floor account
func (s *Seeder) SeedStaff() error {
	fmt.Println("  👤 Seeding staff...")

	password := os.Getenv("SEED_STAFF_PASSWORD")
	if password == "" {
		password = "tablebook-admin"
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	members := []staff.Staff{
		{DisplayName: "Owner", Email: "owner@tablebook.example", Role: staff.RoleAdmin},
		{DisplayName: "Floor", Email: "floor@tablebook.example", Role: staff.RoleStaff},
	}
	for _, m := range members {
		m.Password = string(hashedPassword)
		if err := s.db.PostgreSQL.Create(&m).Error; err != nil {
			return fmt.Errorf("failed to create staff %s: %w", m.Email, err)
		}
		fmt.Printf("    ✅ Created staff: %s (%s)\n", m.Email, m.Role)
	}
	return nil
}

// SeedFormResponses fills the next open day to capacity and puts a few
// reservations on the days after it. Rows alternate between the text the form
// writes and a typed date, the two shapes the availability query accepts.
func (s *Seeder) SeedFormResponses() error {
	fmt.Println("  📅 Seeding form responses...")

	days := s.openDays(4)
	counts := []int{s.restaurant.MaxReservationsPerDay, s.restaurant.MaxReservationsPerDay - 1, 3, 1}

	var rows []availability.FormResponse
	for i, day := range days {
		for n := 0; n < counts[i]; n++ {
			rows = append(rows, s.formResponse(day, n))
		}
	}

	if err := s.db.PostgreSQL.CreateInBatches(rows, 50).Error; err != nil {
		return fmt.Errorf("failed to insert form responses: %w", err)
	}
	fmt.Printf("    ✅ Inserted %d rows, %s is fully booked\n", len(rows), days[0].Format("2006-01-02"))
	return nil
}

func (s *Seeder) formResponse(day time.Time, n int) availability.FormResponse {
	row := availability.FormResponse{
		Time:     "18:00",
		Guests:   "2名",
		Course:   "シェフおまかせコース",
		Name:     fmt.Sprintf("テスト 太郎%d", n+1),
		NameKana: fmt.Sprintf("テスト タロウ%d", n+1),
		Email:    fmt.Sprintf("guest%d@example.com", n+1),
		Phone:    "090-0000-0000",
		Requests: "なし",
	}
	if n%2 == 0 {
		text := submission.FormatDateLabel(day.Format("2006-01-02"))
		row.DateText = &text
	} else {
		typed := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		row.DateValue = &typed
	}
	return row
}

// openDays returns the next n days the restaurant is open, starting tomorrow
func (s *Seeder) openDays(n int) []time.Time {
	closed := s.restaurant.ClosedWeekdaySet()
	days := make([]time.Time, 0, n)
	for d := s.now.AddDate(0, 0, 1); len(days) < n; d = d.AddDate(0, 0, 1) {
		if !closed[d.Weekday()] {
			days = append(days, d)
		}
	}
	return days
}
