package buildinfo

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestInfoUsesStampedValues(t *testing.T) {
    oldV, oldC := Version, Commit
    t.Cleanup(func() { Version, Commit = oldV, oldC })
    Version, Commit = "1.4.0", "abc123"

    info := Info()
    assert.Equal(t, "haulopt", info["service"])
    assert.Equal(t, "1.4.0", info["version"])
    assert.Equal(t, "abc123", info["commit"])
    assert.Contains(t, info, "goVersion")
}
