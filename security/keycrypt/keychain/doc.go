// Copyright 2026 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package keychain stores secrets directly in the macOS Keychain under
// the service name com.grail.wavecrypt.$namespace; secret names are
// stored as the account name. The keychain:// scheme is registered only
// on darwin builds with cgo; elsewhere importing the package has no
// effect.
package keychain
