// Command smlview runs an SML memory image on the VM while rendering
// the memory grid, registers and program output in a window. Execution
// is stepped a fixed number of cycles per frame so short programs stay
// watchable.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"gosimple/pkg/vm"
)

const (
	screenWidth  = 660
	screenHeight = 420
	outputLines  = 6
)

type Game struct {
	vm            *vm.VM
	out           bytes.Buffer
	stepsPerFrame int
}

func (g *Game) Update() error {
	for i := 0; i < g.stepsPerFrame; i++ {
		if !g.vm.Running {
			break
		}
		g.vm.Step()
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "PC=%02d  AC=%+05d  IR=%+05d  %s %02d  cycles=%d\n",
		g.vm.InstructionCounter, g.vm.Accumulator, g.vm.InstructionRegister,
		vm.OpName(g.vm.Opcode), g.vm.Operand, g.vm.Cycles)

	switch {
	case g.vm.Err() != nil:
		fmt.Fprintf(&sb, "FAULT: %v\n", g.vm.Err())
	case !g.vm.Running:
		sb.WriteString("HALTED\n")
	default:
		sb.WriteString("RUNNING\n")
	}
	sb.WriteByte('\n')

	for i := 0; i < vm.MemorySize; i += 10 {
		fmt.Fprintf(&sb, "%2d ", i)
		for j := 0; j < 10; j++ {
			addr := i + j
			marker := ' '
			if addr == g.vm.InstructionCounter {
				marker = '>'
			}
			fmt.Fprintf(&sb, "%c%+05d", marker, g.vm.Memory[addr])
		}
		sb.WriteByte('\n')
	}

	sb.WriteString("\n--- output ---\n")
	lines := strings.Split(g.out.String(), "\n")
	if len(lines) > outputLines {
		lines = lines[len(lines)-outputLines:]
	}
	sb.WriteString(strings.Join(lines, "\n"))

	ebitenutil.DebugPrintAt(screen, sb.String(), 8, 8)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func main() {
	steps := flag.Int("steps", 10, "instructions executed per frame")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("usage: smlview [-steps n] <file.sml>")
	}

	machine := vm.New()
	if err := machine.LoadFile(flag.Arg(0)); err != nil {
		log.Fatalf("Failed to load image: %v", err)
	}

	game := &Game{vm: machine, stepsPerFrame: *steps}
	machine.Output = &game.out

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("smlview - " + flag.Arg(0))
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
