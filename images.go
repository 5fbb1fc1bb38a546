package vocyolo

import (
	"fmt"
	"sync"

	"github.com/disintegration/imaging"
)

// ImageOptions controls how source images are written to the output tree. With zero resize values
// images are copied byte for byte.
type ImageOptions struct {
	ResizeLonger     int    `toml:"resize_longer"`     // Target length of the longer side; 0 keeps the aspect ratio.
	ResizeShorter    int    `toml:"resize_shorter"`    // Target length of the shorter side; 0 keeps the aspect ratio.
	DownsampleFilter string `toml:"downsample_filter"` // nearest, box, linear, gaussian or lanczos.
	UpsampleFilter   string `toml:"upsample_filter"`   // nearest, box, linear, gaussian or lanczos.
	JPEGQuality      int    `toml:"jpeg_quality"`      // [1, 100]
}

// Resizes reports whether images are decoded and resampled instead of copied.
func (o ImageOptions) Resizes() bool {
	return o.ResizeLonger > 0 || o.ResizeShorter > 0
}

// imageTask copies or re-encodes one image.
type imageTask struct {
	src string
	dst string
}

// imageProcessor writes images to the output tree.
type imageProcessor struct {
	opts       ImageOptions
	downsample imaging.ResampleFilter
	upsample   imaging.ResampleFilter
}

func newImageProcessor(opts ImageOptions) (*imageProcessor, error) {
	p := &imageProcessor{opts: opts}
	if !opts.Resizes() {
		return p, nil
	}

	var err error
	if p.downsample, err = parseResampleFilter(opts.DownsampleFilter); err != nil {
		return nil, err
	}
	if p.upsample, err = parseResampleFilter(opts.UpsampleFilter); err != nil {
		return nil, err
	}
	return p, nil
}

// process materializes a single image.
func (p *imageProcessor) process(t imageTask) error {
	if !p.opts.Resizes() {
		return copyFile(t.src, t.dst)
	}

	img, err := loadImage(t.src)
	if err != nil {
		return err
	}
	img = resizeImage(img, p.opts.ResizeLonger, p.opts.ResizeShorter, p.downsample, p.upsample)
	if err := saveImage(t.dst, img, p.opts.JPEGQuality); err != nil {
		return fmt.Errorf("failed to save %q: %w", t.dst, err)
	}
	return nil
}

// processAll runs the tasks on up to numWorkers goroutines and returns one error per task (nil on
// success), in task order. Each task writes a distinct destination file.
func (p *imageProcessor) processAll(tasks []imageTask, numWorkers int) []error {
	errs := make([]error, len(tasks))
	if len(tasks) == 0 {
		return errs
	}

	if numWorkers < 1 {
		numWorkers = 1
	}
	if len(tasks) < numWorkers {
		numWorkers = len(tasks)
	}

	// Limit the number of goroutines in flight, as they load potentially large images into memory.
	workQueue := make(chan int, 2*numWorkers)
	var wg sync.WaitGroup

	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			for idx := range workQueue {
				errs[idx] = p.process(tasks[idx])
			}
		}()
	}

	// Feed the work queue.
	for i := range tasks {
		workQueue <- i
	}
	close(workQueue)

	wg.Wait()
	return errs
}
