package cog

import "fmt"

// Tag identifies a directory entry.
type Tag uint16

// Baseline and tiling tags, plus the GeoTIFF tags cloud-optimized files carry.
const (
	TagImageWidth                Tag = 256
	TagImageLength               Tag = 257
	TagBitsPerSample             Tag = 258
	TagCompression               Tag = 259
	TagPhotometricInterpretation Tag = 262
	TagImageDescription          Tag = 270
	TagStripOffsets              Tag = 273
	TagOrientation               Tag = 274
	TagSamplesPerPixel           Tag = 277
	TagRowsPerStrip              Tag = 278
	TagStripByteCounts           Tag = 279
	TagXResolution               Tag = 282
	TagYResolution               Tag = 283
	TagPlanarConfiguration       Tag = 284
	TagResolutionUnit            Tag = 296
	TagSoftware                  Tag = 305
	TagDateTime                  Tag = 306
	TagPredictor                 Tag = 317
	TagColorMap                  Tag = 320
	TagTileWidth                 Tag = 322
	TagTileLength                Tag = 323
	TagTileOffsets               Tag = 324
	TagTileByteCounts            Tag = 325
	TagSubIFDs                   Tag = 330
	TagExtraSamples              Tag = 338
	TagSampleFormat              Tag = 339
	TagModelPixelScale           Tag = 33550
	TagModelTiepoint             Tag = 33922
	TagGeoKeyDirectory           Tag = 34735
	TagGeoDoubleParams           Tag = 34736
	TagGeoAsciiParams            Tag = 34737
	TagGDALMetadata              Tag = 42112
	TagGDALNoData                Tag = 42113
)

var tagNames = map[Tag]string{
	TagImageWidth:                "ImageWidth",
	TagImageLength:               "ImageLength",
	TagBitsPerSample:             "BitsPerSample",
	TagCompression:               "Compression",
	TagPhotometricInterpretation: "PhotometricInterpretation",
	TagImageDescription:          "ImageDescription",
	TagStripOffsets:              "StripOffsets",
	TagOrientation:               "Orientation",
	TagSamplesPerPixel:           "SamplesPerPixel",
	TagRowsPerStrip:              "RowsPerStrip",
	TagStripByteCounts:           "StripByteCounts",
	TagXResolution:               "XResolution",
	TagYResolution:               "YResolution",
	TagPlanarConfiguration:       "PlanarConfiguration",
	TagResolutionUnit:            "ResolutionUnit",
	TagSoftware:                  "Software",
	TagDateTime:                  "DateTime",
	TagPredictor:                 "Predictor",
	TagColorMap:                  "ColorMap",
	TagTileWidth:                 "TileWidth",
	TagTileLength:                "TileLength",
	TagTileOffsets:               "TileOffsets",
	TagTileByteCounts:            "TileByteCounts",
	TagSubIFDs:                   "SubIFDs",
	TagExtraSamples:              "ExtraSamples",
	TagSampleFormat:              "SampleFormat",
	TagModelPixelScale:           "ModelPixelScale",
	TagModelTiepoint:             "ModelTiepoint",
	TagGeoKeyDirectory:           "GeoKeyDirectory",
	TagGeoDoubleParams:           "GeoDoubleParams",
	TagGeoAsciiParams:            "GeoAsciiParams",
	TagGDALMetadata:              "GDALMetadata",
	TagGDALNoData:                "GDALNoData",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tag(%d)", uint16(t))
}
