package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kush-rc/brain-tumor-detection/internal/domain"
)

type predictionRepo struct {
	pool *pgxpool.Pool
}

func NewPredictionRepository(pool *pgxpool.Pool) domain.PredictionRepository {
	return &predictionRepo{pool: pool}
}

func (r *predictionRepo) Save(ctx context.Context, rec *domain.PredictionRecord) error {
	query := `
		INSERT INTO brain_tumor_prediction
			(id, created_at, subject_ref, notes, predicted_class, predicted_class_index,
			 confidence, prob_glioma, prob_meningioma, prob_no_tumor, prob_pituitary,
			 inference_ms, heatmap_available, image_path, overlay_path)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.CreatedAt, rec.SubjectRef, rec.Notes,
		rec.Class, rec.ClassIndex, rec.Confidence,
		rec.Scores[0], rec.Scores[1], rec.Scores[2], rec.Scores[3],
		rec.InferenceMillis, rec.HeatmapAvailable, rec.ImagePath, rec.OverlayPath,
	)
	if err != nil {
		return fmt.Errorf("save prediction: %w", err)
	}
	return nil
}

func (r *predictionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PredictionRecord, error) {
	query := `
		SELECT id, created_at, subject_ref, notes, predicted_class, predicted_class_index,
			   confidence, prob_glioma, prob_meningioma, prob_no_tumor, prob_pituitary,
			   inference_ms, heatmap_available, image_path, overlay_path
		FROM brain_tumor_prediction
		WHERE id = $1
	`

	rec, err := scanPrediction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPredictionNotFound
		}
		return nil, fmt.Errorf("get prediction by id: %w", err)
	}
	return rec, nil
}

func (r *predictionRepo) List(ctx context.Context, filter domain.PredictionFilter) ([]*domain.PredictionRecord, int, error) {
	conditions := []string{"TRUE"}
	args := []interface{}{}
	argPos := 1

	if filter.Class != "" {
		conditions = append(conditions, fmt.Sprintf("predicted_class = $%d", argPos))
		args = append(args, filter.Class)
		argPos++
	}
	if filter.SubjectRef != "" {
		conditions = append(conditions, fmt.Sprintf("subject_ref = $%d", argPos))
		args = append(args, filter.SubjectRef)
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM brain_tumor_prediction WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count predictions: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, created_at, subject_ref, notes, predicted_class, predicted_class_index,
			   confidence, prob_glioma, prob_meningioma, prob_no_tumor, prob_pituitary,
			   inference_ms, heatmap_available, image_path, overlay_path
		FROM brain_tumor_prediction
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos, argPos+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()

	var records []*domain.PredictionRecord
	for rows.Next() {
		rec, err := scanPrediction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan prediction row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate prediction rows: %w", err)
	}

	return records, total, nil
}

func (r *predictionRepo) Stats(ctx context.Context) (*domain.Stats, error) {
	stats := &domain.Stats{ClassDistribution: make(map[string]int, domain.NumClasses)}
	for _, name := range domain.ClassNames {
		stats.ClassDistribution[name] = 0
	}

	summaryQuery := `
		SELECT COUNT(*),
			   COUNT(*) FILTER (WHERE created_at >= date_trunc('day', NOW())),
			   COALESCE(AVG(confidence), 0)
		FROM brain_tumor_prediction
	`
	err := r.pool.QueryRow(ctx, summaryQuery).Scan(
		&stats.TotalPredictions, &stats.PredictionsToday, &stats.AverageConfidence,
	)
	if err != nil {
		return nil, fmt.Errorf("prediction summary: %w", err)
	}

	distQuery := `
		SELECT predicted_class, COUNT(*)
		FROM brain_tumor_prediction
		GROUP BY predicted_class
	`
	rows, err := r.pool.Query(ctx, distQuery)
	if err != nil {
		return nil, fmt.Errorf("class distribution: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var class string
		var count int
		if err := rows.Scan(&class, &count); err != nil {
			return nil, fmt.Errorf("scan class distribution row: %w", err)
		}
		stats.ClassDistribution[class] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate class distribution rows: %w", err)
	}

	return stats, nil
}

// scanPrediction scans a single PredictionRecord; pgx.Rows satisfies pgx.Row,
// so the same helper serves both single-row and list queries.
func scanPrediction(row pgx.Row) (*domain.PredictionRecord, error) {
	rec := &domain.PredictionRecord{}
	err := row.Scan(
		&rec.ID, &rec.CreatedAt, &rec.SubjectRef, &rec.Notes,
		&rec.Class, &rec.ClassIndex, &rec.Confidence,
		&rec.Scores[0], &rec.Scores[1], &rec.Scores[2], &rec.Scores[3],
		&rec.InferenceMillis, &rec.HeatmapAvailable, &rec.ImagePath, &rec.OverlayPath,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}
