package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalConfig = `
database:
  host: "localhost"
  user: "referral"
  password: "secret"
`

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, minimalConfig))
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "100", cfg.Referral.WelcomeBonus)
	require.Equal(t, "50", cfg.Referral.Level1Reward)
	require.Equal(t, "20", cfg.Referral.Level2Reward)
	require.Equal(t, "10", cfg.Referral.Level3Reward)
	require.NotEmpty(t, cfg.Referral.InviteBaseURL)
	require.Positive(t, cfg.Referral.StoreTimeout)
	require.Positive(t, cfg.Reconciliation.Interval)
	require.Equal(t, 100, cfg.Reconciliation.BatchSize)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_RewardTable(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, minimalConfig+`
referral:
  welcome_bonus: "200"
  level1_reward: "30"
  level2_reward: "15"
  level3_reward: "5"
`))
	require.NoError(t, err)

	table := cfg.Referral.RewardTable()
	require.True(t, table.Welcome.Equal(decimal.RequireFromString("200")))
	require.True(t, table.Level1.Equal(decimal.RequireFromString("30")))
	require.True(t, table.Level2.Equal(decimal.RequireFromString("15")))
	require.True(t, table.Level3.Equal(decimal.RequireFromString("5")))

	amount, ok := table.ForLevel(2)
	require.True(t, ok)
	require.True(t, amount.Equal(decimal.RequireFromString("15")))
	_, ok = table.ForLevel(4)
	require.False(t, ok)
}

func TestLoad_ValidationRejections(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "non decreasing levels",
			content: minimalConfig + `
referral:
  level1_reward: "10"
  level2_reward: "20"
  level3_reward: "5"
`,
			wantErr: "strictly decreasing",
		},
		{
			name: "equal levels",
			content: minimalConfig + `
referral:
  level1_reward: "20"
  level2_reward: "20"
  level3_reward: "10"
`,
			wantErr: "strictly decreasing",
		},
		{
			name: "negative welcome bonus",
			content: minimalConfig + `
referral:
  welcome_bonus: "-5"
`,
			wantErr: "welcome_bonus must be positive",
		},
		{
			name: "malformed amount",
			content: minimalConfig + `
referral:
  level1_reward: "fifty"
`,
			wantErr: "not a valid decimal",
		},
		{
			name: "missing invite base url",
			content: minimalConfig + `
referral:
  invite_base_url: ""
`,
			wantErr: "invite_base_url is required",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfigFile(t, tc.content))
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestGetConnectionString(t *testing.T) {
	cfg := &DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "svc",
		Password: "pw",
		Database: "ledger",
		SSLMode:  "require",
	}
	require.Equal(t,
		"host=db.internal port=5433 user=svc password=pw dbname=ledger sslmode=require",
		cfg.GetConnectionString())
}
