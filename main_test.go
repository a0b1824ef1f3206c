package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/retadi-server/tool"
)

func TestMergeAppConfig(t *testing.T) {
	root := t.TempDir()
	tests := []struct {
		name    string
		cfg     tool.Config
		check   func(t *testing.T, got tool.AppConfig)
		wantErr bool
	}{
		{
			name: "defaults untouched",
			cfg:  tool.Config{},
			check: func(t *testing.T, got tool.AppConfig) {
				assert.Equal(t, uint16(tool.DefaultPort), got.Port)
				assert.Equal(t, "http", got.Protocol)
			},
		},
		{
			name: "port override",
			cfg:  tool.Config{UsePort: 8080},
			check: func(t *testing.T, got tool.AppConfig) {
				assert.Equal(t, uint16(8080), got.Port)
			},
		},
		{name: "port out of range", cfg: tool.Config{UsePort: 70000}, wantErr: true},
		{
			name: "https",
			cfg:  tool.Config{UseHttps: true},
			check: func(t *testing.T, got tool.AppConfig) {
				assert.Equal(t, "https", got.Protocol)
			},
		},
		{
			name: "asset root override",
			cfg:  tool.Config{UseAssetRoot: root},
			check: func(t *testing.T, got tool.AppConfig) {
				assert.Equal(t, root, got.AssetRoot)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appCfg := tool.DefaultAppConfig()
			err := mergeAppConfig(tt.cfg, &appCfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, appCfg)
		})
	}
}

func TestMergeAppConfigRevalidates(t *testing.T) {
	appCfg := tool.DefaultAppConfig()
	appCfg.Protocol = "ftp"
	assert.Error(t, mergeAppConfig(tool.Config{}, &appCfg))
}
