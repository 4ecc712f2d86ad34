package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/linehawk/linehawk/internal/hardware"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Detect and print the hardware profile",
	Long:  "Probe the host CPU topology, vector features, memory, and accelerator, then print the profile the engine would run with",
	RunE:  runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	p := hardware.Detect(zap.NewNop())

	fmt.Println("Hardware Profile:")
	fmt.Printf("  Model:       %s\n", p.ModelName)
	fmt.Printf("  Vendor:      %s\n", p.Vendor)
	fmt.Printf("  Memory:      %s\n", humanize.IBytes(p.TotalMemory))
	fmt.Printf("  Cache line:  %d bytes\n", p.CacheLine)
	if p.L1DCacheBytes > 0 {
		fmt.Printf("  L1D cache:   %s\n", humanize.IBytes(uint64(p.L1DCacheBytes)))
	}
	if p.L2CacheBytes > 0 {
		fmt.Printf("  L2 cache:    %s\n", humanize.IBytes(uint64(p.L2CacheBytes)))
	}
	if p.L3CacheBytes > 0 {
		fmt.Printf("  L3 cache:    %s\n", humanize.IBytes(uint64(p.L3CacheBytes)))
	}

	fmt.Println("\nCore Topology:")
	fmt.Printf("  Performance: %v\n", p.PerformanceCores)
	fmt.Printf("  Efficiency:  %v\n", p.EfficiencyCores)
	fmt.Printf("  Low-power:   %v\n", p.LowPowerCores)

	f := p.Features
	fmt.Println("\nVector Features:")
	fmt.Printf("  SSE4.2: %v  AVX2: %v  FMA: %v\n", f.SSE42, f.AVX2, f.FMA)
	fmt.Printf("  AVX-512 F/BW/VL: %v/%v/%v\n", f.AVX512F, f.AVX512BW, f.AVX512VL)
	fmt.Printf("  POPCNT: %v  BMI2: %v\n", f.POPCNT, f.BMI2)

	fmt.Println("\nAccelerator:")
	if p.AcceleratorPresent {
		fmt.Printf("  Present: %s (%d TOPS)\n", p.AcceleratorName, p.AcceleratorTOPS)
	} else {
		fmt.Println("  Not detected")
	}

	fmt.Printf("\nThermal ceiling: %.1f C\n", p.ThermalCeiling)
	return nil
}
