package store

import (
	"context"
	"fmt"
	"time"

	"github.com/evanofslack/go-dealer/internal/database"
)

// holeCardRow is the gorm mapping of a record. The composite primary key
// doubles as the insert-only concurrency guard: a duplicate insert trips
// the unique constraint instead of overwriting.
type holeCardRow struct {
	TableID    string    `gorm:"column:table_id;primaryKey"`
	HandID     string    `gorm:"column:hand_id;primaryKey"`
	SeatIndex  int       `gorm:"column:seat_index;primaryKey"`
	Card1      int       `gorm:"column:card1"`
	Card2      int       `gorm:"column:card2"`
	Salt       string    `gorm:"column:salt"`
	Commitment string    `gorm:"column:commitment"`
	CreatedAt  time.Time `gorm:"column:created_at;index"`
}

func (holeCardRow) TableName() string {
	return "hole_cards"
}

func toRow(record HoleCardRecord) holeCardRow {
	return holeCardRow{
		TableID:    record.TableID,
		HandID:     record.HandID,
		SeatIndex:  record.SeatIndex,
		Card1:      record.Cards[0],
		Card2:      record.Cards[1],
		Salt:       record.Salt,
		Commitment: record.Commitment,
		CreatedAt:  record.CreatedAt,
	}
}

func fromRow(row holeCardRow) HoleCardRecord {
	return HoleCardRecord{
		TableID:    row.TableID,
		HandID:     row.HandID,
		SeatIndex:  row.SeatIndex,
		Cards:      [2]int{row.Card1, row.Card2},
		Salt:       row.Salt,
		Commitment: row.Commitment,
		CreatedAt:  row.CreatedAt,
	}
}

// PostgresStore persists records through gorm for deployments that already
// run the platform database.
type PostgresStore struct {
	db       *database.DB
	maxSeats int
}

func NewPostgresStore(db *database.DB, maxSeats int) (*PostgresStore, error) {
	if err := db.AutoMigrate(&holeCardRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate hole card table: %w", err)
	}
	return &PostgresStore{
		db:       db,
		maxSeats: maxSeats,
	}, nil
}

func (s *PostgresStore) Set(ctx context.Context, record HoleCardRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}

	row := toRow(record)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if database.IsUniqueConstraintError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert hole card record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, tableID, handID string, seatIndex int) (*HoleCardRecord, error) {
	var row holeCardRow
	err := s.db.WithContext(ctx).
		Where("table_id = ? AND hand_id = ? AND seat_index = ?", tableID, handID, seatIndex).
		First(&row).Error
	if err != nil {
		if database.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load hole card record: %w", err)
	}
	record := fromRow(row)
	return &record, nil
}

func (s *PostgresStore) Has(ctx context.Context, tableID, handID string, seatIndex int) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&holeCardRow{}).
		Where("table_id = ? AND hand_id = ? AND seat_index = ?", tableID, handID, seatIndex).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check hole card record: %w", err)
	}
	return count > 0, nil
}

func (s *PostgresStore) Delete(ctx context.Context, tableID, handID string, seatIndex int) error {
	result := s.db.WithContext(ctx).
		Where("table_id = ? AND hand_id = ? AND seat_index = ?", tableID, handID, seatIndex).
		Delete(&holeCardRow{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete hole card record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetHand(ctx context.Context, tableID, handID string) ([]HoleCardRecord, error) {
	var rows []holeCardRow
	err := s.db.WithContext(ctx).
		Where("table_id = ? AND hand_id = ? AND seat_index < ?", tableID, handID, s.maxSeats).
		Order("seat_index asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load hand records: %w", err)
	}

	records := make([]HoleCardRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, fromRow(row))
	}
	return records, nil
}

func (s *PostgresStore) DeleteHand(ctx context.Context, tableID, handID string) (int, error) {
	result := s.db.WithContext(ctx).
		Where("table_id = ? AND hand_id = ?", tableID, handID).
		Delete(&holeCardRow{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete hand records: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}

func (s *PostgresStore) DeleteOlderThan(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&holeCardRow{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to sweep hole card records: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}
