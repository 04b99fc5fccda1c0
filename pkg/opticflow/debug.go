package opticflow

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/image/bmp"
)

func maybeSaveImage(img *Image, savePath, filename string) {
	if savePath == "" {
		return
	}
	if _, err := os.Stat(savePath); os.IsNotExist(err) {
		return
	}
	f, err := os.Create(filepath.Join(savePath, filename))
	if err != nil {
		Logf("opticflow: debug image %s: %v", filename, err)
		return
	}
	defer f.Close()
	if err := bmp.Encode(f, img.Gray()); err != nil {
		Logf("opticflow: debug image %s: %v", filename, err)
	}
}

func maybeSaveText(savePath, filename, text string) {
	if savePath == "" {
		return
	}
	if _, err := os.Stat(savePath); os.IsNotExist(err) {
		return
	}
	if err := os.WriteFile(filepath.Join(savePath, filename), []byte(text), 0644); err != nil {
		Logf("opticflow: debug text %s: %v", filename, err)
	}
}

func savePyramid(p *Pyramid, savePath string, frame int) {
	if savePath == "" {
		return
	}
	for l := range p.Levels {
		maybeSaveImage(&p.Levels[l], savePath, fmt.Sprintf("%04d-level%d.bmp", frame, l))
	}
}
