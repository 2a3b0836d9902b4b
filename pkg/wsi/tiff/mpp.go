package tiff

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	aperioMPP   = regexp.MustCompile(`(?i)\|MPP\s*=\s*([0-9]*\.?[0-9]+)`)
	omePhysical = regexp.MustCompile(`PhysicalSize([XY])="([0-9]*\.?[0-9]+)"`)
	omeUnit     = regexp.MustCompile(`PhysicalSize([XY])Unit="([^"]*)"`)
)

// calibration derives the level-0 microns-per-pixel values of a page.
// Aperio-style ImageDescription fields win, then OME-XML PhysicalSize
// attributes, then the plain TIFF resolution tags.
func calibration(p page) (x, y float64, ok bool) {
	if x, y, ok = aperioCalibration(p.description); ok {
		return x, y, true
	}
	if x, y, ok = omeCalibration(p.description); ok {
		return x, y, true
	}
	return resolutionCalibration(p)
}

// aperioCalibration parses the "|MPP = 0.2520|" field SVS files carry in
// their first page description. Aperio reports a single isotropic value.
func aperioCalibration(desc string) (x, y float64, ok bool) {
	m := aperioMPP.FindStringSubmatch(desc)
	if m == nil {
		return 0, 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v <= 0 {
		return 0, 0, false
	}
	return v, v, true
}

// omeCalibration parses PhysicalSizeX/Y attributes from an OME-XML
// description. Values default to microns; explicit nm and mm units are
// converted.
func omeCalibration(desc string) (x, y float64, ok bool) {
	if !strings.Contains(desc, "<OME") {
		return 0, 0, false
	}

	units := map[string]string{}
	for _, m := range omeUnit.FindAllStringSubmatch(desc, -1) {
		units[m[1]] = m[2]
	}

	vals := map[string]float64{}
	for _, m := range omePhysical.FindAllStringSubmatch(desc, -1) {
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil || v <= 0 {
			continue
		}
		switch units[m[1]] {
		case "nm":
			v /= 1000
		case "mm":
			v *= 1000
		}
		vals[m[1]] = v
	}

	x, okX := vals["X"]
	y, okY := vals["Y"]
	if !okX || !okY {
		return 0, 0, false
	}
	return x, y, true
}

// resolutionCalibration converts XResolution/YResolution (pixels per
// ResolutionUnit) into microns per pixel.
func resolutionCalibration(p page) (x, y float64, ok bool) {
	if p.xResolution <= 0 || p.yResolution <= 0 {
		return 0, 0, false
	}
	var perUnit float64
	switch p.resolutionUnit {
	case 2: // inch
		perUnit = 25400
	case 3: // centimeter
		perUnit = 10000
	default:
		return 0, 0, false
	}
	return perUnit / p.xResolution, perUnit / p.yResolution, true
}
