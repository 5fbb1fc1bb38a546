package vocyolo

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // Register the JPEG decoder for image.DecodeConfig.
	_ "image/png"
	"io/fs"
	"math"
	"os"

	"github.com/disintegration/imaging"
)

// parseResampleFilter returns the imaging filter with the given name.
func parseResampleFilter(name string) (imaging.ResampleFilter, error) {
	switch name {
	case "nearest":
		return imaging.NearestNeighbor, nil
	case "box":
		return imaging.Box, nil
	case "linear":
		return imaging.Linear, nil
	case "gaussian":
		return imaging.Gaussian, nil
	case "lanczos":
		return imaging.Lanczos, nil
	}
	return imaging.ResampleFilter{}, fmt.Errorf("unknown resampling filter %q", name)
}

// resizeImage resamples the image to match the longer and shorter sides (one may be 0, which keeps
// the aspect ratio).
//
// Normalized YOLO coordinates do not depend on the image size, so labels stay valid.
func resizeImage(img image.Image, longerSide, shorterSide int,
	downsamplingFilter, upsamplingFilter imaging.ResampleFilter) image.Image {

	imgBounds := img.Bounds()
	imgWidth := imgBounds.Dx()
	imgHeight := imgBounds.Dy()

	imgLonger, imgShorter := imgWidth, imgHeight
	isLandscape := imgWidth >= imgHeight
	if !isLandscape {
		imgLonger, imgShorter = imgHeight, imgWidth
	}

	// Calculate the target dimensions.
	if longerSide <= 0 {
		longerSide = int(math.Round(float64(shorterSide) * (float64(imgLonger) / float64(imgShorter))))
	} else if shorterSide <= 0 {
		shorterSide = int(math.Round(float64(longerSide) * (float64(imgShorter) / float64(imgLonger))))
	}

	// Select the filter based on the direction of the rescaling operation.
	filter := upsamplingFilter
	if longerSide*shorterSide < imgWidth*imgHeight {
		filter = downsamplingFilter
	}

	if isLandscape {
		return imaging.Resize(img, longerSide, shorterSide, filter)
	}
	return imaging.Resize(img, shorterSide, longerSide, filter)
}

// decodeImageConfig opens the file at path and returns the results of image.DecodeConfig. A
// missing file is reported as *FileNotFoundError.
func decodeImageConfig(path string) (config image.Config, format string, err error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return image.Config{}, "", &FileNotFoundError{Path: path, Err: err}
		}
		return image.Config{}, "", err
	}
	defer file.Close()

	return image.DecodeConfig(file)
}

// loadImage reads and decodes the image at path. A missing file is reported as
// *FileNotFoundError.
func loadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &FileNotFoundError{Path: path, Err: err}
		}
		return nil, err
	}
	return img, nil
}

// saveImage encodes img according to the file extension of path and writes it there.
func saveImage(path string, img image.Image, jpegQuality int) error {
	return imaging.Save(img, path, imaging.JPEGQuality(jpegQuality))
}
