// Package report renders end-of-run artefacts: an HTML possession report
// built with go-echarts and a PNG formation plot built with gonum/plot.
package report
