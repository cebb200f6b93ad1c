package db

import "database/sql"

// Setting keys
const (
	SettingEditorPath = "editor_path"
	SettingLogLevel   = "log_level"
)

// Default settings
var defaultSettings = map[string]string{
	SettingEditorPath: "",
	SettingLogLevel:   "info",
}

// IsKnownSetting reports whether key is a recognised setting
func IsKnownSetting(key string) bool {
	_, ok := defaultSettings[key]
	return ok
}

// GetSetting retrieves a setting by key, falling back to its default
func (d *DB) GetSetting(key string) (string, error) {
	var value string
	err := d.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return defaultSettings[key], nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetSetting updates or creates a setting
func (d *DB) SetSetting(key, value string) error {
	_, err := d.run(`
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, NowMs())
	return err
}

// GetAllSettings returns defaults overridden by stored values
func (d *DB) GetAllSettings() (map[string]string, error) {
	settings := make(map[string]string, len(defaultSettings))
	for k, v := range defaultSettings {
		settings[k] = v
	}

	rows, err := d.conn.Query("SELECT key, value FROM settings")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		settings[key] = value
	}
	return settings, rows.Err()
}
