package layout

// 排版统一使用像素。渲染后端以 1 个画布单位（mm）对应 1 个像素进行栅格化，
// 因此字号需要在像素与 pt 之间换算；导出 PDF 时再按 96 DPI 将像素换算为毫米。

// Conversion constants between pt, mm and px.
const (
	PtToMm = 25.4 / 72
	MmToPt = 1.0 / PtToMm
	PxToMm = 25.4 / 96
)

// PxToPt 将像素字号换算为画布字体所需的 pt（画布单位即像素）。
func PxToPt(px float64) float64 { return px * MmToPt }

// PageSizeMM 返回按 96 DPI 换算后的页面尺寸（mm）。
func PageSizeMM(width, height int) (float64, float64) {
	return float64(width) * PxToMm, float64(height) * PxToMm
}
