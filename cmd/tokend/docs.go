package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           tokend API
// @version         1.0
// @description     HTTP API for tokenization, masked-token prediction and embeddings.
//
// @contact.name   tokend maintainers
// @contact.url    https://github.com/your-org/tokend
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
