package hardware

import (
	"os"
	"runtime"

	"github.com/jaypipes/ghw"
	"github.com/klauspost/cpuid/v2"
	"github.com/pbnjay/memory"
	"github.com/shirou/gopsutil/v3/cpu"
	"go.uber.org/zap"
)

// CoreClass identifies the throughput/power class of a CPU core.
type CoreClass uint8

const (
	ClassPerformance CoreClass = iota
	ClassEfficiency
	ClassLowPower
)

// String returns a human-readable core class name.
func (c CoreClass) String() string {
	switch c {
	case ClassPerformance:
		return "performance"
	case ClassEfficiency:
		return "efficiency"
	case ClassLowPower:
		return "low_power"
	default:
		return "unknown"
	}
}

// Features tracks the vector and bit-manipulation capabilities relevant to
// the hashing and diffing kernels.
type Features struct {
	SSE42    bool
	AVX2     bool
	AVX512F  bool
	AVX512BW bool
	AVX512VL bool
	FMA      bool
	POPCNT   bool
	BMI2     bool
}

// Profile describes the host hardware. It is built once by Detect and is
// immutable afterwards; the engine reads it without locking.
type Profile struct {
	ModelName     string
	Vendor        string
	Features      Features
	CacheLine     int
	L1DCacheBytes int
	L2CacheBytes  int
	L3CacheBytes  int
	TotalMemory   uint64

	PerformanceCores []int
	EfficiencyCores  []int
	LowPowerCores    []int

	AcceleratorPresent bool
	AcceleratorName    string
	AcceleratorTOPS    int
	ThermalCeiling     float64
}

// defaultThermalCeiling is the safe operating temperature assumed when no
// platform-specific value is known.
const defaultThermalCeiling = 95.0

// acceleratorDevice is the inference accelerator device node probed at
// startup. Intel AI Boost exposes itself here on recent kernels.
const acceleratorDevice = "/dev/accel/accel0"

// Detect probes the host once and returns a valid profile. It never fails:
// anything that cannot be determined degrades to "unavailable" so the engine
// always starts, possibly without acceleration or topology awareness.
func Detect(logger *zap.Logger) *Profile {
	p := &Profile{
		CacheLine:      64,
		ThermalCeiling: defaultThermalCeiling,
	}

	p.Features = Features{
		SSE42:    cpuid.CPU.Supports(cpuid.SSE42),
		AVX2:     cpuid.CPU.Supports(cpuid.AVX2),
		AVX512F:  cpuid.CPU.Supports(cpuid.AVX512F),
		AVX512BW: cpuid.CPU.Supports(cpuid.AVX512BW),
		AVX512VL: cpuid.CPU.Supports(cpuid.AVX512VL),
		FMA:      cpuid.CPU.Supports(cpuid.FMA3),
		POPCNT:   cpuid.CPU.Supports(cpuid.POPCNT),
		BMI2:     cpuid.CPU.Supports(cpuid.BMI2),
	}
	p.ModelName = cpuid.CPU.BrandName
	p.Vendor = cpuid.CPU.VendorString
	if cpuid.CPU.CacheLine > 0 {
		p.CacheLine = cpuid.CPU.CacheLine
	}
	if cpuid.CPU.Cache.L1D > 0 {
		p.L1DCacheBytes = cpuid.CPU.Cache.L1D
	}
	if cpuid.CPU.Cache.L2 > 0 {
		p.L2CacheBytes = cpuid.CPU.Cache.L2
	}
	if cpuid.CPU.Cache.L3 > 0 {
		p.L3CacheBytes = cpuid.CPU.Cache.L3
	}
	p.TotalMemory = memory.TotalMemory()

	if info, err := cpu.Info(); err == nil && len(info) > 0 {
		if p.ModelName == "" {
			p.ModelName = info[0].ModelName
		}
		if p.Vendor == "" {
			p.Vendor = info[0].VendorID
		}
	} else if err != nil {
		logger.Debug("CPU info probe failed", zap.Error(err))
	}

	p.PerformanceCores, p.EfficiencyCores, p.LowPowerCores = partitionCores(p.ModelName, runtime.NumCPU())

	p.detectAccelerator(logger)

	logger.Info("Hardware detection complete",
		zap.String("model", p.ModelName),
		zap.Bool("avx2", p.Features.AVX2),
		zap.Bool("avx512f", p.Features.AVX512F),
		zap.Bool("fma", p.Features.FMA),
		zap.Bool("popcnt", p.Features.POPCNT),
		zap.Int("performance_cores", len(p.PerformanceCores)),
		zap.Int("efficiency_cores", len(p.EfficiencyCores)),
		zap.Int("low_power_cores", len(p.LowPowerCores)),
		zap.Bool("accelerator", p.AcceleratorPresent),
		zap.Uint64("total_memory", p.TotalMemory),
	)

	return p
}

// detectAccelerator checks for an inference accelerator. The device node is
// the primary signal; ghw GPU enumeration fills in a descriptive name when
// available. A failed probe simply leaves acceleration off.
func (p *Profile) detectAccelerator(logger *zap.Logger) {
	if _, err := os.Stat(acceleratorDevice); err != nil {
		return
	}
	p.AcceleratorPresent = true
	p.AcceleratorName = "npu0"
	p.AcceleratorTOPS = 11 // Intel AI Boost on Core Ultra

	gpuInfo, err := ghw.GPU()
	if err != nil {
		logger.Debug("GPU enumeration failed", zap.Error(err))
		return
	}
	for _, card := range gpuInfo.GraphicsCards {
		if card.DeviceInfo != nil && card.DeviceInfo.Product != nil {
			p.AcceleratorName = card.DeviceInfo.Product.Name
			break
		}
	}
}

// AllCores returns every core id in scheduling order: performance cores
// first, then efficiency, then low-power.
func (p *Profile) AllCores() []int {
	cores := make([]int, 0, len(p.PerformanceCores)+len(p.EfficiencyCores)+len(p.LowPowerCores))
	cores = append(cores, p.PerformanceCores...)
	cores = append(cores, p.EfficiencyCores...)
	cores = append(cores, p.LowPowerCores...)
	return cores
}

// ClassOf returns the class of the given core id.
func (p *Profile) ClassOf(core int) CoreClass {
	for _, id := range p.EfficiencyCores {
		if id == core {
			return ClassEfficiency
		}
	}
	for _, id := range p.LowPowerCores {
		if id == core {
			return ClassLowPower
		}
	}
	return ClassPerformance
}
