// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of proctree

package consts

const MetricsNamespace = "proctree"
