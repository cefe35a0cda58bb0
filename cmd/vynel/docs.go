package main

// General API documentation for swaggo. The rendered document lives in
// internal/apidocs and is served under /swagger/ in -tags=swagger builds.
//
// @title           vynel API
// @version         1.0
// @description     HTTP API for the local inference session manager.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
