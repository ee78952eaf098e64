// Package charts renders analysis results as PNG images.
//
// Five chart kinds are available: mean growth rate per compound, mean
// inhibition per treatment compound, optical density time course, and
// optical density against temperature or pH at the end of the growth window.
package charts
