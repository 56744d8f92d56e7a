package vm

import (
	"fmt"
	"io"
	"os"
	"strconv"
)

// MemorySize is the number of cells in an SML memory image. Instructions
// and data share the same 100-cell space.
const MemorySize = 100

// Image is a complete SML memory image: instructions from address 0
// upward, data from address 99 downward.
type Image [MemorySize]int

// Write emits the image in .sml text form: one signed, zero-padded
// four-digit word per line for all 100 cells.
func (img *Image) Write(w io.Writer) error {
	for _, word := range img {
		if _, err := fmt.Fprintf(w, "%+05d\n", word); err != nil {
			return err
		}
	}
	return nil
}

// ReadImage loads an image from whitespace-separated signed decimals.
// Fewer than 100 values leaves the remaining cells zero; values beyond
// the 100th are ignored.
func ReadImage(r io.Reader) (Image, error) {
	var img Image
	addr := 0
	for addr < MemorySize {
		var text string
		_, err := fmt.Fscan(r, &text)
		if err == io.EOF {
			break
		}
		if err != nil {
			return img, fmt.Errorf("bad word at address %d: %v", addr, err)
		}
		// Base 10 always: the zero-padded words Write emits must not be
		// taken for octal.
		word, err := strconv.Atoi(text)
		if err != nil {
			return img, fmt.Errorf("bad word at address %d: %v", addr, err)
		}
		img[addr] = word
		addr++
	}
	return img, nil
}

// WriteImageFile writes img to path in .sml text form.
func WriteImageFile(path string, img *Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create file: %s", path)
	}
	defer f.Close()
	return img.Write(f)
}

// ReadImageFile reads a .sml file from path.
func ReadImageFile(path string) (Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return Image{}, fmt.Errorf("cannot open file: %s", path)
	}
	defer f.Close()
	return ReadImage(f)
}
