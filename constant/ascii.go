package constant

// AsciiArtLogo is the banner printed above the root command help.
const AsciiArtLogo = `
 ┌─┐┬─┐┌─┐ ┬┌─┐┌─┐┌┬┐┌─┐┬─┐
 ├─┘├┬┘│ │ │├┤ │   │ │ │├┬┘
 ┴  ┴└─└─┘└┘└─┘└─┘ ┴ └─┘┴└─`
