package monitors

import (
	"testing"

	"github.com/c9s/goprocinfo/linux"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/pulseboard/pulseboard/logger"
)

const mountsFixture = `sysfs /sys sysfs rw,nosuid 0 0
proc /proc proc rw,nosuid 0 0
/dev/nvme0n1p2 / ext4 rw,relatime 0 0
/dev/nvme0n1p1 /boot vfat rw,relatime 0 0
/dev/nvme0n1p2 /home ext4 rw,relatime 0 0
tmpfs /tmp tmpfs rw,nosuid 0 0
/dev/sdb1 /mnt/broken ext4 rw 0 0
`

func TestDiskCollectorFiltersAndDedupes(t *testing.T) {
	root := t.TempDir()
	writeProcFile(t, root, "mounts", mountsFixture)

	c := &DiskCollector{
		procRoot: root,
		logger:   logger.NopLogger{},
		statDisk: func(path string) (*linux.Disk, error) {
			if path == "/mnt/broken" {
				return nil, errors.New("stale handle")
			}
			return &linux.Disk{All: 1000, Used: 400, Free: 600}, nil
		},
	}

	usages, err := c.Collect()
	require.NoError(t, err)

	// Pseudo filesystems skipped, the duplicated device counted once and
	// the unstatable mount dropped.
	require.Len(t, usages, 2)
	require.Equal(t, "/", usages[0].MountPoint)
	require.Equal(t, "/boot", usages[1].MountPoint)
	require.InDelta(t, 40, usages[0].Percent, 0.001)
}
