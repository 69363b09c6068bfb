package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/PaulFidika/signuplifecycle/core"
)

// SettingsSource loads the policy from lifecycle.config_plugins on every run.
type SettingsSource struct {
	store     *Store
	namespace string
	location  *time.Location
}

func (s *Store) Settings(namespace string, loc *time.Location) *SettingsSource {
	if namespace == "" {
		namespace = core.SettingsNamespace
	}
	return &SettingsSource{store: s, namespace: namespace, location: loc}
}

// Values returns the raw key/value settings of the namespace.
func (ss *SettingsSource) Values(ctx context.Context) (map[string]string, error) {
	if ss.store.pg == nil {
		return nil, errors.New("postgres not configured")
	}
	rows, err := ss.store.pg.Query(ctx, `SELECT name, value FROM lifecycle.config_plugins WHERE plugin=$1`, ss.namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (ss *SettingsSource) LoadConfig(ctx context.Context) (core.Config, error) {
	kv, err := ss.Values(ctx)
	if err != nil {
		return core.Config{}, err
	}
	return core.ParseSettings(kv, ss.location)
}

// Set upserts one setting.
func (ss *SettingsSource) Set(ctx context.Context, name, value string) error {
	if ss.store.pg == nil {
		return errors.New("postgres not configured")
	}
	_, err := ss.store.pg.Exec(ctx, `INSERT INTO lifecycle.config_plugins (plugin, name, value) VALUES ($1,$2,$3)
		ON CONFLICT (plugin, name) DO UPDATE SET value=EXCLUDED.value`, ss.namespace, name, value)
	return err
}
