package deviceinfo

func init() {
	const (
		stm     = 0x020
		lattice = 0x021
		xilinx  = 0x049
		arm     = 0x23B
	)

	// STM32 boundary-scan TAPs
	register(stm, 0x6410, DeviceInfo{Name: "STM32F10x (Medium-density)", Family: "STM32F1", Description: "ARM Cortex-M3 MCU", Kind: KindMCU, IRLength: 5})
	register(stm, 0x6414, DeviceInfo{Name: "STM32F10x (High-density)", Family: "STM32F1", Description: "ARM Cortex-M3 MCU", Kind: KindMCU, IRLength: 5})
	register(stm, 0x6413, DeviceInfo{Name: "STM32F40x/41x", Family: "STM32F4", Description: "ARM Cortex-M4 MCU with FPU", Kind: KindMCU, IRLength: 5})
	register(stm, 0x6419, DeviceInfo{Name: "STM32F42x/43x", Family: "STM32F4", Description: "ARM Cortex-M4 MCU with FPU", Kind: KindMCU, IRLength: 5})
	register(stm, 0x6422, DeviceInfo{Name: "STM32F30x/31x", Family: "STM32F3", Description: "ARM Cortex-M4 MCU with FPU", Kind: KindMCU, IRLength: 5})
	register(stm, 0x6449, DeviceInfo{Name: "STM32F74x/75x", Family: "STM32F7", Description: "ARM Cortex-M7 MCU with FPU", Kind: KindMCU, IRLength: 5})
	register(stm, 0x6450, DeviceInfo{Name: "STM32H74x/75x", Family: "STM32H7", Description: "ARM Cortex-M7 MCU with FPU", Kind: KindMCU, IRLength: 5})

	// ARM debug ports
	register(arm, 0xBA00, DeviceInfo{Name: "JTAG-DP", Family: "CoreSight", Description: "ARM JTAG debug port", Kind: KindDebug, IRLength: 4})

	// FPGAs
	register(xilinx, 0x362D, DeviceInfo{Name: "XC7A35T", Family: "Artix-7", Description: "Xilinx 7-series FPGA", Kind: KindFPGA, IRLength: 6})
	register(xilinx, 0x3631, DeviceInfo{Name: "XC7A100T", Family: "Artix-7", Description: "Xilinx 7-series FPGA", Kind: KindFPGA, IRLength: 6})
	register(lattice, 0x1111, DeviceInfo{Name: "LFE5U-25", Family: "ECP5", Description: "Lattice ECP5 FPGA", Kind: KindFPGA, IRLength: 8})
	register(lattice, 0x1112, DeviceInfo{Name: "LFE5U-45", Family: "ECP5", Description: "Lattice ECP5 FPGA", Kind: KindFPGA, IRLength: 8})
}
