package project

import (
	"context"
	"fmt"
	"time"

	"timeliner/internal/ges"
	"timeliner/internal/logging"
)

// Save replaces the project contents with the members of tl. Members that
// carry no serializable state are skipped. Records the last Load could not
// rebuild are kept as stored.
func (s *Store) Save(ctx context.Context, tl *ges.Timeline) error {
	ctx = ensureContext(ctx)
	var records []ges.Record
	members := make(map[string]struct{})
	skipped := 0
	for _, o := range tl.Objects() {
		rec, ok := o.Serialize()
		if !ok {
			skipped++
			continue
		}
		members[rec.ID] = struct{}{}
		records = append(records, rec)
	}
	held := 0
	for _, rec := range s.held {
		if _, ok := members[rec.ID]; ok {
			continue
		}
		records = append(records, rec)
		held++
	}

	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin save tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		timestamp := time.Now().UTC().Format(time.RFC3339Nano)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO project (id, media_type, created_at, updated_at) VALUES (1, ?, ?, ?)
             ON CONFLICT(id) DO UPDATE SET media_type = excluded.media_type, updated_at = excluded.updated_at`,
			tl.MediaType().String(), timestamp, timestamp,
		); err != nil {
			return fmt.Errorf("save project: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM objects"); err != nil {
			return fmt.Errorf("clear objects: %w", err)
		}
		for position, rec := range records {
			args, err := recordArgs(rec)
			if err != nil {
				return err
			}
			args = append(args, position)
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO objects ("+recordColumns+", position) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
				args...,
			); err != nil {
				return fmt.Errorf("save object %s: %w", rec.ID, err)
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return err
	}
	logger := logging.WithContext(logging.WithTimelineID(ctx, tl.ID().String()), s.logger)
	logger.Info("project saved",
		logging.Int("objects", len(records)-held),
		logging.Int("held", held),
		logging.Int("skipped", skipped),
	)
	return nil
}

// Load builds a timeline from the project. Objects that cannot be rebuilt
// or added are logged and left out; the timeline is returned regardless.
// Their records are held so a later Save does not drop them.
func (s *Store) Load(ctx context.Context, env ges.Env, opts ...ges.Option) (*ges.Timeline, error) {
	ctx = ensureContext(ctx)
	mt, err := s.MediaType(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}

	opts = append([]ges.Option{ges.WithLogger(env.Logger)}, opts...)
	tl, err := ges.New(env.Graph, mt, opts...)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	ctx = logging.WithTimelineID(ctx, tl.ID().String())
	logger := logging.WithContext(ctx, s.logger)
	s.held = nil
	loaded := 0
	for _, rec := range records {
		o, err := ges.Deserialize(ctx, rec, env)
		if err == nil {
			if err = tl.AddObject(o); err != nil {
				_ = o.Release()
			}
		}
		if err != nil {
			s.held = append(s.held, rec)
			logging.WarnWithContext(logging.WithContext(logging.WithObjectID(ctx, rec.ID), s.logger), "project object skipped", "project_object_skipped",
				logging.String("kind", rec.Type),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the object's uri and media type"),
				logging.String(logging.FieldImpact, "object is missing from the loaded timeline; its record is kept"),
			)
			continue
		}
		loaded++
	}
	logger.Debug("project loaded",
		logging.Int("objects", loaded),
		logging.Int("skipped", len(records)-loaded),
	)
	return tl, nil
}

// Held returns the records the last Load left out.
func (s *Store) Held() []ges.Record {
	return append([]ges.Record(nil), s.held...)
}
