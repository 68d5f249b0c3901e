package monitors

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/c9s/goprocinfo/linux"
	"github.com/pkg/errors"

	"github.com/pulseboard/pulseboard/logger"
)

// PartitionUsage is the usage of one mounted filesystem. Sizes are bytes.
type PartitionUsage struct {
	Device     string  `json:"device"`
	MountPoint string  `json:"mountpoint"`
	FSType     string  `json:"fstype"`
	Total      uint64  `json:"total"`
	Used       uint64  `json:"used"`
	Free       uint64  `json:"free"`
	Percent    float64 `json:"percent"`
}

// virtualFSTypes are pseudo filesystems excluded from the disk card.
var virtualFSTypes = map[string]bool{
	"autofs": true, "bpf": true, "cgroup": true, "cgroup2": true,
	"configfs": true, "debugfs": true, "devpts": true, "devtmpfs": true,
	"fusectl": true, "hugetlbfs": true, "mqueue": true, "overlay": true,
	"proc": true, "pstore": true, "ramfs": true, "securityfs": true,
	"squashfs": true, "sysfs": true, "tmpfs": true, "tracefs": true,
}

// DiskCollector samples mounted filesystem usage.
type DiskCollector struct {
	procRoot string
	logger   logger.Logger

	// statDisk is swappable for tests.
	statDisk func(path string) (*linux.Disk, error)
}

// NewDiskCollector creates a collector reading the real procfs.
func NewDiskCollector(l logger.Logger) *DiskCollector {
	if l == nil {
		l = logger.NopLogger{}
	}
	return &DiskCollector{
		procRoot: "/proc",
		logger:   l,
		statDisk: linux.ReadDisk,
	}
}

// Collect returns usage for every real mounted filesystem. Mounts that
// cannot be statted (permissions, stale NFS) are logged and skipped.
func (c *DiskCollector) Collect() ([]PartitionUsage, error) {
	mounts, err := linux.ReadMounts(filepath.Join(c.procRoot, "mounts"))
	if err != nil {
		return nil, errors.Wrap(err, "read /proc/mounts")
	}

	seen := make(map[string]bool)
	var out []PartitionUsage
	for _, m := range mounts.Mounts {
		if virtualFSTypes[m.FSType] || !strings.HasPrefix(m.Device, "/dev/") {
			continue
		}
		if seen[m.Device] {
			continue
		}

		disk, err := c.statDisk(m.MountPoint)
		if err != nil {
			c.logger.Debug("skipping mount", "mountpoint", m.MountPoint, "error", err.Error())
			continue
		}
		seen[m.Device] = true

		usage := PartitionUsage{
			Device:     m.Device,
			MountPoint: m.MountPoint,
			FSType:     m.FSType,
			Total:      disk.All,
			Used:       disk.Used,
			Free:       disk.Free,
		}
		if usage.Total > 0 {
			usage.Percent = float64(usage.Used) / float64(usage.Total) * 100
		}
		out = append(out, usage)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].MountPoint < out[j].MountPoint })
	return out, nil
}
