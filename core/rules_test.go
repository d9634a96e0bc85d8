package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

func checkPath(t *testing.T, cfg *Configuration, path string) (string, bool) {
	t.Helper()
	p, err := ParsePath(path)
	require.NoError(t, err)
	return DefaultValidator().ValidatePath(cfg, p)
}

func TestValidator_Identifier(t *testing.T) {
	t.Run("Should accept valid identifiers", func(t *testing.T) {
		for _, name := range []string{"a", "_", "SensorData", "sensor_id", "_x9", "A1_b2"} {
			cfg := Default()
			cfg.PacketName = name
			_, ok := checkPath(t, &cfg, PathPacketName)
			assert.True(t, ok, name)
		}
	})

	t.Run("Should reject empty name with an empty message", func(t *testing.T) {
		cfg := Default()
		cfg.Fields[0].Name = ""
		msg, ok := checkPath(t, &cfg, "fields.0.name")
		assert.False(t, ok)
		assert.Equal(t, "cannot be empty", msg)
	})

	t.Run("Should reject invalid characters and leading digits", func(t *testing.T) {
		for _, name := range []string{"9abc", "a-b", "a b", "名字", "x.y", "a$"} {
			cfg := Default()
			cfg.PacketName = name
			msg, ok := checkPath(t, &cfg, PathPacketName)
			assert.False(t, ok, name)
			assert.Equal(t, "must be a valid C++ identifier", msg)
		}
	})
}

func TestValidator_CommandID(t *testing.T) {
	cases := []struct {
		input string
		ok    bool
	}{
		{"0x0104", true},
		{"0xFFFF", true},
		{"0XffFF", true},
		{"0", true},
		{"65535", true},
		{"0x10000", false},
		{"70000", false},
		{"abc", false},
		{"-1", false},
		{"0x", false},
		{"", false},
	}
	for _, c := range cases {
		t.Run("Should handle "+c.input, func(t *testing.T) {
			cfg := Default()
			cfg.CommandID = c.input
			_, ok := checkPath(t, &cfg, PathCommandID)
			assert.Equal(t, c.ok, ok)
		})
	}

	t.Run("Should parse hex command id to its decimal value", func(t *testing.T) {
		id, err := ParseCommandID("0x0104")
		require.NoError(t, err)
		assert.Equal(t, uint16(260), id)
		assert.Equal(t, "0x0104", FormatCommandID(id))
	})
}

func TestValidator_Type(t *testing.T) {
	t.Run("Should accept every supported type", func(t *testing.T) {
		for _, typ := range CppTypes() {
			cfg := Default()
			cfg.Fields[0].Type = typ
			_, ok := checkPath(t, &cfg, "fields.0.type")
			assert.True(t, ok, typ)
		}
	})

	t.Run("Should reject unknown and empty types", func(t *testing.T) {
		cfg := Default()
		cfg.Fields[0].Type = "char*"
		msg, ok := checkPath(t, &cfg, "fields.0.type")
		assert.False(t, ok)
		assert.Equal(t, "unsupported type", msg)

		cfg.Fields[0].Type = ""
		msg, ok = checkPath(t, &cfg, "fields.0.type")
		assert.False(t, ok)
		assert.Equal(t, "cannot be empty", msg)
	})
}

func TestValidator_Optionals(t *testing.T) {
	t.Run("Should skip absent namespace and header guard", func(t *testing.T) {
		cfg := Default()
		assert.Empty(t, DefaultValidator().Validate(&cfg))
	})

	t.Run("Should check present namespace and header guard", func(t *testing.T) {
		cfg := Default()
		cfg.Namespace = strPtr("Robot::Sensors")
		cfg.HeaderGuard = strPtr("RPL_SENSOR_HPP")
		assert.Empty(t, DefaultValidator().Validate(&cfg))

		cfg.Namespace = strPtr("Robot::")
		cfg.HeaderGuard = strPtr("1GUARD")
		violations := DefaultValidator().Validate(&cfg)
		require.Len(t, violations, 2)
		assert.Equal(t, PathNamespace, violations[0].Path)
		assert.Equal(t, PathHeaderGuard, violations[1].Path)
	})
}

func TestValidator_Structure(t *testing.T) {
	t.Run("Should require at least one field only in the structural check", func(t *testing.T) {
		cfg := Default()
		cfg.Fields = nil
		assert.Empty(t, DefaultValidator().Validate(&cfg))

		violations := DefaultValidator().ValidateStructure(&cfg)
		require.Len(t, violations, 1)
		assert.Equal(t, PathFields, violations[0].Path)
	})

	t.Run("Should report every failing leaf with its path", func(t *testing.T) {
		cfg := Default()
		cfg.PacketName = "1bad"
		cfg.Fields = append(cfg.Fields, Field{Name: "ok", Type: "bogus"})
		violations := DefaultValidator().ValidateAll(&cfg)
		paths := make([]string, 0, len(violations))
		for _, v := range violations {
			paths = append(paths, v.Path)
		}
		assert.Equal(t, []string{"packet_name", "fields.1.type"}, paths)
	})
}
